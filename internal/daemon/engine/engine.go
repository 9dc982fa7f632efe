// Package engine runs the daemon's background workers against the shared store.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/recordsync/internal/daemon/store"
	"github.com/sirupsen/logrus"
)

// Worker is a background task that feeds or maintains the store.
type Worker interface {
	// Name returns the worker's name for logging.
	Name() string

	// Run blocks until ctx is canceled.
	Run(ctx context.Context) error
}

// Loader is implemented by workers that have an initial state to load before the mirrors start.
type Loader interface {
	Load(ctx context.Context) error
}

// Engine manages and runs all workers.
type Engine struct {
	store   *store.Store
	workers []Worker
	logger  *logrus.Entry

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a new Engine instance.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Register adds a worker to the engine.
func (e *Engine) Register(w Worker) {
	e.workers = append(e.workers, w)
}

// Start loads every Loader, starts the mirrors against the agent, then runs all workers and
// blocks until ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	for _, w := range e.workers {
		if l, ok := w.(Loader); ok {
			if err := l.Load(ctx); err != nil {
				e.logger.WithField("worker", w.Name()).WithError(err).Error("Initial load failed")
				return err
			}
		}
	}

	if err := e.store.Provider().Start(ctx, e.store.Agent()); err != nil {
		e.logger.WithError(err).Error("Failed to start mirrors")
		return err
	}
	e.readyOnce.Do(func() { close(e.ready) })

	var wg sync.WaitGroup
	for _, w := range e.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			e.logger.WithField("worker", w.Name()).Info("Starting worker")
			if err := w.Run(ctx); err != nil {
				e.logger.WithField("worker", w.Name()).WithError(err).Error("Worker failed")
			}
		}(w)
	}

	wg.Wait()
	return nil
}

// Ready is closed once the initial load is done and the mirrors hold their first snapshot.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Store returns the engine's store.
func (e *Engine) Store() *store.Store {
	return e.store
}
