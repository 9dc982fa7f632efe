// Package testutil holds fixtures shared by recordsync tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/recordsync/pkg/records"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// QuietLogger returns a logger that writes nowhere.
func QuietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// RecordsDir is a temporary records directory laid out by kind.
type RecordsDir struct {
	t    *testing.T
	Path string
}

// NewRecordsDir creates an empty records directory under t.TempDir().
func NewRecordsDir(t *testing.T) *RecordsDir {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records")
	require.NoError(t, os.MkdirAll(path, 0o755))
	return &RecordsDir{t: t, Path: path}
}

// Write stores a record file named name in the directory of kind t.
func (d *RecordsDir) Write(kind records.Type, name, content string) string {
	d.t.Helper()
	path := filepath.Join(d.Path, kind.Kind(), name)
	WriteFile(d.t, path, content)
	return path
}

// Remove deletes a record file written with Write.
func (d *RecordsDir) Remove(kind records.Type, name string) {
	d.t.Helper()
	require.NoError(d.t, os.Remove(filepath.Join(d.Path, kind.Kind(), name)))
}

// Isolate points RECORDSYNC_HOME at a fresh directory so default paths never touch the user's.
func Isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("RECORDSYNC_HOME", home)
	return home
}
