package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/internal/daemon/engine"
	"github.com/grovetools/recordsync/internal/daemon/server"
	"github.com/grovetools/recordsync/internal/daemon/store"
	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Client = (*RemoteClient)(nil)
	_ Client = (*LocalClient)(nil)
)

// startDaemon serves a seeded agent on a unix socket and returns both.
func startDaemon(t *testing.T) (*agent.Agent, string) {
	t.Helper()
	logger := testutil.QuietLogger()

	a := agent.New()
	require.NoError(t, a.Save(records.ConnectionRecord{Base: records.Base{ID: "c1"}, State: records.DidExchangeCompleted}))
	require.NoError(t, a.Save(records.CredentialExchangeRecord{Base: records.Base{ID: "cred-1"}, State: records.CredentialOfferReceived}))

	p := mirror.NewProvider(mirror.WithLogger(logger), mirror.WithSavedEvents(true))
	require.NoError(t, p.Start(context.Background(), a))
	st := store.New(a, p, logger)

	srv := server.New(logger)
	srv.SetEngine(engine.New(st, logger))

	socketPath := filepath.Join(t.TempDir(), "d.sock")
	go func() { _ = srv.ListenAndServe(socketPath) }()

	require.Eventually(t, func() bool {
		c, err := Connect(socketPath)
		if err != nil {
			return false
		}
		defer c.Close()
		return c.IsRunning()
	}, 3*time.Second, 20*time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		st.Close()
		p.Close()
	})
	return a, socketPath
}

func TestConnectWithoutDaemon(t *testing.T) {
	_, err := Connect(filepath.Join(t.TempDir(), "missing.sock"))
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
}

func TestRemoteClientReads(t *testing.T) {
	_, socketPath := startDaemon(t)
	ctx := context.Background()

	c, err := Connect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	all, err := c.GetAll(ctx, records.TypeConnection)
	require.NoError(t, err)
	require.Len(t, all, 1)
	conn, ok := all[0].(records.ConnectionRecord)
	require.True(t, ok)
	assert.Equal(t, records.DidExchangeCompleted, conn.State)

	rec, err := c.GetRecord(ctx, records.TypeCredential, "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "offer-received", rec.RecordState())

	_, err = c.GetRecord(ctx, records.TypeCredential, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeRecordNotFound))

	cfg, err := c.RunningConfig(ctx)
	assert.Error(t, err, "no running config was set")
	assert.Nil(t, cfg)
}

func TestMirrorOverRemoteClient(t *testing.T) {
	a, socketPath := startDaemon(t)

	c, err := Connect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	s := mirror.New[records.ConnectionRecord](records.TypeConnection, mirror.WithLogger(testutil.QuietLogger()))
	defer s.Close()
	require.NoError(t, s.Start(context.Background(), c))
	assert.True(t, s.Subscribed())
	require.Len(t, s.All(), 1)

	require.NoError(t, a.Update(records.ConnectionRecord{Base: records.Base{ID: "c1"}, State: records.DidExchangeAbandoned}))
	require.NoError(t, a.Save(records.ConnectionRecord{Base: records.Base{ID: "c2"}, State: records.DidExchangeStart}))
	require.NoError(t, a.Update(records.ConnectionRecord{Base: records.Base{ID: "c2"}, State: records.DidExchangeRequestSent}))

	assert.Eventually(t, func() bool {
		items := s.All()
		return len(items) == 2 && items[0].ID == "c2" && items[1].State == records.DidExchangeAbandoned
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Delete(records.TypeConnection, "c1"))
	assert.Eventually(t, func() bool {
		_, ok := s.ByID("c1")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStreamEvents(t *testing.T) {
	a, socketPath := startDaemon(t)

	c, err := Connect(socketPath)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.StreamEvents(ctx, records.TypeProof)
	require.NoError(t, err)

	// The subscription is registered before the response headers are sent.
	require.NoError(t, a.Save(records.ConnectionRecord{Base: records.Base{ID: "ignored"}}))
	require.NoError(t, a.Save(records.ProofExchangeRecord{Base: records.Base{ID: "p1"}, State: records.ProofRequestSent}))

	select {
	case msg := <-ch:
		assert.Equal(t, events.RecordSaved, msg.Type)
		assert.Equal(t, records.TypeProof, msg.RecordType)
	case <-time.After(3 * time.Second):
		t.Fatal("no stream message received")
	}
}

func TestLocalClient(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proofs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proofs", "p1.yml"), []byte("state: done\n"), 0o644))

	cfg := config.Default()
	cfg.Records.Dir = dir
	cfg.Records.Debounce = 10 * time.Millisecond
	cfg.Daemon.Socket = filepath.Join(t.TempDir(), "none.sock")

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	local, ok := c.(*LocalClient)
	require.True(t, ok, "falls back to the in-process client")
	assert.False(t, local.IsRunning())

	rec, err := local.GetRecord(context.Background(), records.TypeProof, "p1")
	require.NoError(t, err)
	assert.Equal(t, "done", rec.RecordState())

	var got []events.Event
	sub, err := local.Subscribe(events.RecordUpdated, records.TypeProof, func(e events.Event) { got = append(got, e) })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, local.Agent().Update(records.ProofExchangeRecord{Base: records.Base{ID: "p1"}, State: records.ProofAbandoned}))
	assert.Len(t, got, 1)
}

func TestRemoteMirrorWaitsForLoadedDaemon(t *testing.T) {
	logger := testutil.QuietLogger()

	a := agent.New()
	require.NoError(t, a.Save(records.ConnectionRecord{Base: records.Base{ID: "c1"}, State: records.DidExchangeCompleted}))

	// The daemon's mirrors have not fetched yet.
	p := mirror.NewProvider(mirror.WithLogger(logger), mirror.WithSavedEvents(true))
	st := store.New(a, p, logger)
	srv := server.New(logger)
	srv.SetEngine(engine.New(st, logger))

	socketPath := filepath.Join(t.TempDir(), "d.sock")
	go func() { _ = srv.ListenAndServe(socketPath) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		st.Close()
		p.Close()
	})

	var c *RemoteClient
	require.Eventually(t, func() bool {
		var err error
		c, err = Connect(socketPath)
		return err == nil && c.IsRunning()
	}, 3*time.Second, 20*time.Millisecond)
	defer c.Close()

	_, err := c.GetAll(context.Background(), records.TypeConnection)
	assert.True(t, errors.Is(err, errors.ErrCodeFetchFailed))

	s := mirror.New[records.ConnectionRecord](records.TypeConnection, mirror.WithLogger(logger))
	defer s.Close()
	err = s.Start(context.Background(), c)
	assert.True(t, errors.Is(err, errors.ErrCodeFetchFailed))
	assert.True(t, s.Loading())
	assert.False(t, s.Subscribed())

	require.NoError(t, p.Start(context.Background(), a))
	require.NoError(t, s.Start(context.Background(), c))
	assert.False(t, s.Loading())
	require.Len(t, s.All(), 1)
	assert.Equal(t, "c1", s.All()[0].ID)
}
