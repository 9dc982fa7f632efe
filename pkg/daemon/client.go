// Package daemon provides the clients commands use to read records.
// It implements a transparent fallback pattern: if the daemon is running, mirrors read from it
// over its socket; if not, records are loaded in-process from the records directory.
package daemon

import (
	"context"

	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
)

// Client is a mirror.Source with a few direct lookups.
// Both RemoteClient (daemon) and LocalClient (in-process) implement it.
type Client interface {
	mirror.Source

	// GetRecord returns one record, or a RECORD_NOT_FOUND error.
	GetRecord(ctx context.Context, t records.Type, id string) (records.Record, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}
