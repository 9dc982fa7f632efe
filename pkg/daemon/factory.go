package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/errors"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to LocalClient.
//
// Callers don't need to know whether the daemon is running or not; the same API works in
// both modes.
func New(cfg *config.Config) (Client, error) {
	if client, err := Connect(cfg.Daemon.Socket); err == nil {
		return client, nil
	}
	return NewLocalClient(cfg)
}

// Connect returns a RemoteClient when the daemon socket accepts connections.
func Connect(socketPath string) (*RemoteClient, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn.Close()
	return NewRemoteClient(socketPath)
}
