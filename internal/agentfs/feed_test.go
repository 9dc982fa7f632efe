package agentfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeed(t *testing.T, dir string, ignore ...string) (*Feed, *agent.Agent) {
	t.Helper()
	a := agent.New()
	f, err := New(a, Options{Dir: dir, Ignore: ignore, Debounce: 20 * time.Millisecond, Logger: testutil.QuietLogger()})
	require.NoError(t, err)
	return f, a
}

func ids(t *testing.T, a *agent.Agent, kind records.Type) []string {
	t.Helper()
	all, err := a.GetAll(context.Background(), kind)
	require.NoError(t, err)
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.RecordID()
	}
	return out
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "connections", "a.json"),
		`{"id": "conn-a", "state": "completed", "theirLabel": "Faber", "createdAt": "2024-03-01T10:00:00Z"}`)
	testutil.WriteFile(t, filepath.Join(dir, "connections", "b.yml"), "state: request-sent\nalias: bob\n")
	testutil.WriteFile(t, filepath.Join(dir, "credentials", "c.toml"), "id = \"cred-1\"\nstate = \"offer-received\"\nconnectionId = \"conn-a\"\n")
	testutil.WriteFile(t, filepath.Join(dir, "proofs", "p.yaml"), "id: proof-1\nstate: done\nisVerified: true\n")
	testutil.WriteFile(t, filepath.Join(dir, "proofs", "notes.txt"), "not a record")
	testutil.WriteFile(t, filepath.Join(dir, "proofs", "broken.json"), "{")

	f, a := newFeed(t, dir)
	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, []string{"conn-a", "b"}, ids(t, a, records.TypeConnection), "id defaults to the file stem")
	assert.Equal(t, []string{"cred-1"}, ids(t, a, records.TypeCredential))
	assert.Equal(t, []string{"proof-1"}, ids(t, a, records.TypeProof))

	rec, err := a.GetByID(context.Background(), records.TypeConnection, "conn-a")
	require.NoError(t, err)
	c := rec.(records.ConnectionRecord)
	assert.Equal(t, "Faber", c.TheirLabel)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), c.CreatedAt.UTC())

	rec, err = a.GetByID(context.Background(), records.TypeProof, "proof-1")
	require.NoError(t, err)
	p := rec.(records.ProofExchangeRecord)
	require.NotNil(t, p.IsVerified)
	assert.True(t, *p.IsVerified)
}

func TestLoadCreatesKindDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	f, _ := newFeed(t, dir)
	require.NoError(t, f.Load(context.Background()))

	for _, kind := range records.Types {
		assert.DirExists(t, filepath.Join(dir, kind.Kind()))
	}
}

func TestLoadIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "connections", "keep.json"), `{"state": "completed"}`)
	testutil.WriteFile(t, filepath.Join(dir, "connections", "draft.tmp.json"), `{"state": "start"}`)
	testutil.WriteFile(t, filepath.Join(dir, "credentials", "x.json"), `{"state": "done"}`)

	f, a := newFeed(t, dir, "*.tmp.json", "credentials")
	require.NoError(t, f.Load(context.Background()))

	assert.Equal(t, []string{"keep"}, ids(t, a, records.TypeConnection))
	assert.Empty(t, ids(t, a, records.TypeCredential))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(agent.New(), Options{})
	assert.Error(t, err)

	_, err = New(agent.New(), Options{Dir: t.TempDir(), Ignore: []string{"[invalid"}, Logger: testutil.QuietLogger()})
	assert.Error(t, err)
}

func TestRunFollowsFileChanges(t *testing.T) {
	dir := t.TempDir()
	f, a := newFeed(t, dir)
	require.NoError(t, f.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "connections", "live.json")
	testutil.WriteFile(t, path, `{"state": "start"}`)
	assert.Eventually(t, func() bool {
		rec, err := a.GetByID(context.Background(), records.TypeConnection, "live")
		return err == nil && rec.RecordState() == "start"
	}, 3*time.Second, 20*time.Millisecond)

	testutil.WriteFile(t, path, `{"state": "completed"}`)
	assert.Eventually(t, func() bool {
		rec, err := a.GetByID(context.Background(), records.TypeConnection, "live")
		return err == nil && rec.RecordState() == "completed"
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, err := a.GetByID(context.Background(), records.TypeConnection, "live")
		return err != nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(records.TypeCredential, "/x/credentials/offer.json",
		[]byte(`{"state": "offer-received", "credentialAttributes": [{"name": "age", "value": "42"}]}`))
	require.NoError(t, err)
	cred := rec.(records.CredentialExchangeRecord)
	assert.Equal(t, "offer", cred.ID)
	require.Len(t, cred.CredentialAttributes, 1)
	assert.Equal(t, "age", cred.CredentialAttributes[0].Name)

	_, err = ParseRecord(records.TypeCredential, "/x/credentials/offer.ini", []byte(""))
	assert.Error(t, err)

	assert.True(t, IsRecordFile("a.YAML"))
	assert.False(t, IsRecordFile("a.txt"))
}
