package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/internal/daemon/pidfile"
	"github.com/grovetools/recordsync/pkg/daemon"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture is a records directory plus a recordsync.yml pointing at it.
type fixture struct {
	dir     string
	cfgPath string
	socket  string
	pidFile string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	testutil.Isolate(t)

	rd := testutil.NewRecordsDir(t)
	rd.Write(records.TypeConnection, "c1.yaml", "id: c1\nstate: completed\ntheirLabel: Faber\n")
	rd.Write(records.TypeConnection, "c2.yaml", "id: c2\nstate: request-sent\n")
	rd.Write(records.TypeProof, "p1.yaml", "id: p1\nstate: done\nisVerified: true\n")

	dir := filepath.Dir(rd.Path)
	f := fixture{
		dir:     rd.Path,
		cfgPath: filepath.Join(dir, "recordsync.yml"),
		socket:  filepath.Join(dir, "d.sock"),
		pidFile: filepath.Join(dir, "d.pid"),
	}
	cfg := fmt.Sprintf("records:\n  dir: %s\n  debounce: 20ms\ndaemon:\n  socket: %s\n  pid_file: %s\n", f.dir, f.socket, f.pidFile)
	testutil.WriteFile(t, f.cfgPath, cfg)
	return f
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeIDs(t *testing.T, out string) []string {
	t.Helper()
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i], _ = item["id"].(string)
	}
	return ids
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)

	for _, want := range []string{"USAGE", "COMMANDS", "list", "watch", "daemon", "Record kinds: connections, credentials, proofs"} {
		assert.Contains(t, out, want)
	}
}

func TestListWithoutDaemon(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "list", "connections", "--json", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, decodeIDs(t, out))

	out, err = run(t, "list", "connections", "--state", "completed", "--json", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, decodeIDs(t, out))

	out, err = run(t, "list", "credentials", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No credentials found.")
}

func TestListUnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, "list", "widgets", "-c", f.cfgPath)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownKind))
}

func TestGetWithoutDaemon(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "get", "proofs", "p1", "--json", "-c", f.cfgPath)
	require.NoError(t, err)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "p1", rec["id"])
	assert.Equal(t, "done", rec["state"])

	out, err = run(t, "get", "connections", "c1", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "connections/c1")
	assert.Contains(t, out, "theirLabel: Faber")

	_, err = run(t, "get", "connections", "missing", "-c", f.cfgPath)
	assert.True(t, errors.Is(err, errors.ErrCodeRecordNotFound))
}

func TestDaemonServesCommands(t *testing.T) {
	f := newFixture(t)
	cfg, err := config.Load(f.cfgPath)
	require.NoError(t, err)

	d, err := newDaemon(cfg, testutil.QuietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	require.Eventually(t, func() bool {
		c, err := daemon.Connect(f.socket)
		if err != nil {
			return false
		}
		defer c.Close()
		return c.IsRunning()
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		out, err := run(t, "list", "connections", "--json", "-c", f.cfgPath)
		return err == nil && len(decodeIDs(t, out)) == 2
	}, 3*time.Second, 50*time.Millisecond)

	out, err := run(t, "get", "proofs", "p1", "--json", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "p1"`)

	require.NoError(t, pidfile.Acquire(f.pidFile))
	out, err = run(t, "daemon", "status", "--json", "-c", f.cfgPath)
	require.NoError(t, pidfile.Release(f.pidFile))
	require.NoError(t, err)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, float64(os.Getpid()), status["pid"])
	assert.Equal(t, f.dir, status["records_dir"])
	assert.Contains(t, status, "version")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	_, statErr := os.Stat(f.socket)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDaemonStatusNotRunning(t *testing.T) {
	f := newFixture(t)

	_, err := run(t, "daemon", "status", "-c", f.cfgPath)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))

	out, err := run(t, "daemon", "stop", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon is not running")
}

func TestStatusRows(t *testing.T) {
	rows := statusRows(map[string]interface{}{
		"pid":                  float64(4242),
		"socket":               "/run/d.sock",
		"include_saved_events": true,
		"debounce":             float64(100),
	})

	assert.Equal(t, [][]string{
		{"PID", "4242"},
		{"Socket", "/run/d.sock"},
		{"Saved events", "true"},
	}, rows)
	assert.Equal(t, "0.5", formatStatusValue(0.5))
	assert.Equal(t, "x", formatStatusValue("x"))
}

func TestRenderList(t *testing.T) {
	items := []records.Record{
		records.ConnectionRecord{Base: records.Base{ID: "conn-1"}, State: records.DidExchangeCompleted, TheirLabel: "Faber"},
	}

	out := renderList(records.TypeConnection, items, 100)
	for _, want := range []string{"ID", "THEIR LABEL", "conn-1", "completed", "Faber"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, renderList(records.TypeProof, nil, 100), "No proofs found.")
}

func TestFormatEvent(t *testing.T) {
	msg, err := events.NewMessage(events.Event{
		Type:      events.RecordUpdated,
		Record:    records.ProofExchangeRecord{Base: records.Base{ID: "proof-7"}, State: records.ProofDone},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	line := formatEvent(msg)
	assert.Contains(t, line, string(events.RecordUpdated))
	assert.Contains(t, line, "proofs")
	assert.Contains(t, line, "proof-7")
	assert.Contains(t, line, "done")

	msg.Record = []byte("{")
	assert.NotContains(t, formatEvent(msg), "proof-7")
}

func TestStreamSnapshots(t *testing.T) {
	updates := make(chan mirror.Snapshot, 2)
	updates <- mirror.Snapshot{Loading: true, Items: []records.Record{}}
	updates <- mirror.Snapshot{Items: []records.Record{
		records.ConnectionRecord{Base: records.Base{ID: "a"}, State: records.DidExchangeCompleted},
		records.ConnectionRecord{Base: records.Base{ID: "b"}, State: records.DidExchangeRequestSent},
	}}
	close(updates)

	var out bytes.Buffer
	require.NoError(t, streamSnapshots(context.Background(), &out, updates, "completed"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var last struct {
		Loading bool                     `json:"loading"`
		Items   []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.False(t, last.Loading)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "a", last.Items[0]["id"])
}

func TestStreamSnapshotsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, streamSnapshots(ctx, io.Discard, make(chan mirror.Snapshot), ""))
}

func TestConfigCommands(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "config", "validate", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, err = run(t, "config", "show", "-c", f.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+f.cfgPath)
	assert.Contains(t, out, "dir: "+f.dir)
	assert.Contains(t, out, savedEventsNote)

	off := filepath.Join(t.TempDir(), "recordsync.yml")
	testutil.WriteFile(t, off, "sync:\n  include_saved_events: false\n")
	out, err = run(t, "config", "show", "-c", off)
	require.NoError(t, err)
	assert.NotContains(t, out, "# Note:")
	assert.Contains(t, out, "include_saved_events: false")

	out, err = run(t, "config", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	bad := filepath.Join(t.TempDir(), "recordsync.yml")
	testutil.WriteFile(t, bad, "records:\n  debounce: -5s\n")
	_, err = run(t, "config", "validate", bad)
	assert.Error(t, err)
}

func TestPathsCommand(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "paths", "-c", f.cfgPath)
	require.NoError(t, err)

	var got PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, f.dir, got.RecordsDir)
	assert.Equal(t, f.socket, got.Socket)
	assert.Equal(t, f.pidFile, got.PidFile)
	assert.NotEmpty(t, got.ConfigDir)
}
