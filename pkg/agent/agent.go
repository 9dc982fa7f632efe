// Package agent provides an in-memory record agent: ordered per-type repositories plus the event
// bus that announces every change. It is the Source mirrors read from when no daemon is running,
// and the store the daemon serves.
package agent

import (
	"context"
	"sync"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/records"
)

// Agent owns records and publishes their lifecycle events.
type Agent struct {
	// writeMu serializes mutations together with their event delivery.
	writeMu sync.Mutex

	mu    sync.RWMutex
	repos map[records.Type]*repository

	bus *events.Bus
}

type repository struct {
	order []string
	byID  map[string]records.Record
}

// New creates an empty agent.
func New() *Agent {
	repos := make(map[records.Type]*repository, len(records.Types))
	for _, t := range records.Types {
		repos[t] = &repository{byID: make(map[string]records.Record)}
	}
	return &Agent{repos: repos, bus: events.NewBus()}
}

// Events returns the agent's event bus.
func (a *Agent) Events() *events.Bus {
	return a.bus
}

// Save stores a new record and publishes RecordSaved.
func (a *Agent) Save(rec records.Record) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.store(rec, false); err != nil {
		return err
	}
	a.publish(events.RecordSaved, rec)
	return nil
}

// Update replaces an existing record and publishes RecordUpdated.
func (a *Agent) Update(rec records.Record) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.store(rec, true); err != nil {
		return err
	}
	a.publish(events.RecordUpdated, rec)
	return nil
}

// Put saves rec when its id is new and updates it otherwise.
func (a *Agent) Put(rec records.Record) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if rec == nil {
		return errors.New(errors.ErrCodeInvalidInput, "record is nil")
	}
	_, exists := a.get(rec.RecordType(), rec.RecordID())
	if err := a.store(rec, exists); err != nil {
		return err
	}
	if exists {
		a.publish(events.RecordUpdated, rec)
	} else {
		a.publish(events.RecordSaved, rec)
	}
	return nil
}

// Delete removes a record and publishes RecordDeleted carrying the removed record.
func (a *Agent) Delete(t records.Type, id string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	repo, ok := a.repos[t]
	if !ok {
		a.mu.Unlock()
		return errors.UnknownKind(string(t))
	}
	removed, ok := repo.byID[id]
	if !ok {
		a.mu.Unlock()
		return errors.RecordNotFound(string(t), id)
	}
	delete(repo.byID, id)
	for i, existing := range repo.order {
		if existing == id {
			repo.order = append(repo.order[:i:i], repo.order[i+1:]...)
			break
		}
	}
	a.mu.Unlock()

	a.publish(events.RecordDeleted, removed)
	return nil
}

// GetAll returns copies of every record of type t in insertion order.
func (a *Agent) GetAll(ctx context.Context, t records.Type) ([]records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	repo, ok := a.repos[t]
	if !ok {
		return nil, errors.UnknownKind(string(t))
	}
	out := make([]records.Record, 0, len(repo.order))
	for _, id := range repo.order {
		out = append(out, records.Clone(repo.byID[id]))
	}
	return out, nil
}

// GetByID returns a copy of the record of type t with the given id.
func (a *Agent) GetByID(ctx context.Context, t records.Type, id string) (records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := a.repo(t); !ok {
		return nil, errors.UnknownKind(string(t))
	}
	rec, ok := a.get(t, id)
	if !ok {
		return nil, errors.RecordNotFound(string(t), id)
	}
	return rec, nil
}

// Subscribe delivers events of eventType whose record has type recordType.
func (a *Agent) Subscribe(eventType events.Type, recordType records.Type, handler events.Handler) (events.Subscription, error) {
	if _, ok := a.repo(recordType); !ok {
		return nil, errors.UnknownKind(string(recordType))
	}
	return a.bus.Subscribe(eventType, handler, events.FilterByRecordType(recordType)), nil
}

func (a *Agent) repo(t records.Type) (*repository, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.repos[t]
	return r, ok
}

func (a *Agent) get(t records.Type, id string) (records.Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	repo, ok := a.repos[t]
	if !ok {
		return nil, false
	}
	rec, ok := repo.byID[id]
	if !ok {
		return nil, false
	}
	return records.Clone(rec), true
}

// store writes a copy of rec. mustExist selects update semantics.
func (a *Agent) store(rec records.Record, mustExist bool) error {
	if rec == nil {
		return errors.New(errors.ErrCodeInvalidInput, "record is nil")
	}
	t, id := rec.RecordType(), rec.RecordID()
	if id == "" {
		return errors.RecordInvalid(string(t), "missing id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	repo, ok := a.repos[t]
	if !ok {
		return errors.UnknownKind(string(t))
	}
	_, exists := repo.byID[id]
	switch {
	case mustExist && !exists:
		return errors.RecordNotFound(string(t), id)
	case !mustExist && exists:
		return errors.RecordExists(string(t), id)
	}
	if !exists {
		repo.order = append(repo.order, id)
	}
	repo.byID[id] = records.Clone(rec)
	return nil
}

func (a *Agent) publish(t events.Type, rec records.Record) {
	a.bus.Publish(events.Event{Type: t, Record: records.Clone(rec)})
}
