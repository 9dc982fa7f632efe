package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/recordsync/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"unknown kind", errors.UnknownKind("widgets"), []string{"widgets", "connections, credentials, proofs"}},
		{"record not found", errors.RecordNotFound("ConnectionRecord", "c9"), []string{"c9", "recordsync list"}},
		{"daemon not running", errors.DaemonNotRunning("/tmp/x.sock"), []string{"recordsync daemon start"}},
		{"config not found", errors.ConfigNotFound("/etc/nope.yml"), []string{"/etc/nope.yml"}},
		{"wrapped", fmt.Errorf("list: %w", errors.UnknownKind("bogus")), []string{"bogus"}},
		{"plain", fmt.Errorf("boom"), []string{"Error: boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewErrorHandler(&buf, false).Handle(tt.err)
			assert.Equal(t, tt.err, err)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	NewErrorHandler(&buf, true).Handle(errors.RecordNotFound("ProofRecord", "p1"))
	assert.Contains(t, buf.String(), `"code": "RECORD_NOT_FOUND"`)

	assert.NoError(t, NewErrorHandler(&buf, true).Handle(nil))
}

func TestStandardCommandFlags(t *testing.T) {
	cmd := NewStandardCommand("recordsync", "test")
	require.NoError(t, cmd.ParseFlags([]string{"-v", "--json", "-c", "custom.yml"}))

	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "custom.yml", opts.ConfigFile)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recordsync.yml")
	require.NoError(t, os.WriteFile(path, []byte("records:\n  dir: "+dir+"\n"), 0o644))

	cmd := NewStandardCommand("recordsync", "test")
	require.NoError(t, cmd.ParseFlags([]string{"--config", path}))

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Records.Dir)
	assert.Equal(t, path, cfg.Path)

	cmd = NewStandardCommand("recordsync", "test")
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(dir, "missing.yml")}))
	_, err = LoadConfig(cmd)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestRenderHelp(t *testing.T) {
	root := NewStandardCommand("recordsync", "Mirror agent records")
	list := &cobra.Command{
		Use:   "list KIND",
		Short: "List records",
		Long: `List the mirrored records of one kind.

Examples:
  # every connection
  recordsync list connections --state completed`,
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	list.Flags().String("state", "", "Only show records in this state")
	root.AddCommand(list)

	var buf bytes.Buffer
	renderHelp(&buf, root, 60)
	out := buf.String()
	assert.Contains(t, out, "RECORDSYNC")
	assert.Contains(t, out, "COMMANDS")
	assert.Contains(t, out, "list")
	assert.Contains(t, out, "--verbose")

	buf.Reset()
	renderHelp(&buf, list, 60)
	out = buf.String()
	assert.Contains(t, out, "FLAGS")
	assert.Contains(t, out, "--state")
	assert.Contains(t, out, "EXAMPLES")
	assert.Contains(t, out, "# every connection")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "keep\nbreaks", wrapText("keep\nbreaks", 40))
}

func TestParseDescription(t *testing.T) {
	desc, ex := parseDescription("Does a thing.\nExamples:\n  tool run")
	assert.Equal(t, "Does a thing.", desc)
	assert.Equal(t, "tool run", ex)
}
