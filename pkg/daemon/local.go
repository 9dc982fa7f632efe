package daemon

import (
	"context"
	"sync"

	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/internal/agentfs"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/records"
)

// LocalClient implements Client with an in-process agent fed from the records directory.
// Changes to the directory are picked up while the client is open.
type LocalClient struct {
	agent  *agent.Agent
	feed   *agentfs.Feed
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalClient loads cfg.Records.Dir and starts watching it.
func NewLocalClient(cfg *config.Config) (*LocalClient, error) {
	a := agent.New()
	feed, err := agentfs.New(a, agentfs.Options{
		Dir:      cfg.Records.Dir,
		Ignore:   cfg.Records.Ignore,
		Debounce: cfg.Records.Debounce,
		Logger:   logging.NewLogger("agentfs"),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := feed.Load(ctx); err != nil {
		cancel()
		return nil, err
	}

	c := &LocalClient{agent: a, feed: feed, cancel: cancel}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := feed.Run(ctx); err != nil {
			logging.NewLogger("daemon-client").WithError(err).Warn("Records watcher stopped")
		}
	}()
	return c, nil
}

// Agent returns the in-process agent.
func (c *LocalClient) Agent() *agent.Agent {
	return c.agent
}

// GetAll implements mirror.Source.
func (c *LocalClient) GetAll(ctx context.Context, t records.Type) ([]records.Record, error) {
	return c.agent.GetAll(ctx, t)
}

// Subscribe implements mirror.Source.
func (c *LocalClient) Subscribe(eventType events.Type, recordType records.Type, handler events.Handler) (events.Subscription, error) {
	return c.agent.Subscribe(eventType, recordType, handler)
}

// GetRecord returns one record from the in-process agent.
func (c *LocalClient) GetRecord(ctx context.Context, t records.Type, id string) (records.Record, error) {
	return c.agent.GetByID(ctx, t, id)
}

// IsRunning always returns false for LocalClient.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close stops the directory watcher.
func (c *LocalClient) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}
