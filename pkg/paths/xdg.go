// Package paths resolves the directories recordsync reads and writes.
//
// Resolution order:
// 1. RECORDSYNC_HOME (portable root) → $RECORDSYNC_HOME/{config,data,state,run}
// 2. XDG env vars → $XDG_*_HOME/recordsync
// 3. Platform defaults → ~/.config/recordsync, ~/.local/share/recordsync, ~/.local/state/recordsync
package paths

import (
	"os"
	"path/filepath"
)

const appName = "recordsync"

// base resolves one directory class: the portable root wins, then the XDG variable, then the
// fallback below the user's home directory.
func base(homeSubdir, xdgVar string, fallback ...string) string {
	if home := os.Getenv("RECORDSYNC_HOME"); home != "" {
		return filepath.Join(home, homeSubdir)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
}

// ConfigDir returns the directory holding the user-level recordsync.yml.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the data directory. The default records directory lives here.
func DataDir() string {
	return base("data", "XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the state directory, used for the pid file and logs.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// RuntimeDir returns the directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if home := os.Getenv("RECORDSYNC_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// RecordsDir returns the default agent records directory.
func RecordsDir() string {
	data := DataDir()
	if data == "" {
		return ""
	}
	return filepath.Join(data, "records")
}

// SocketPath returns the path to the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "recordsyncd.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "recordsyncd.pid")
}

// EnsureDirs creates the recordsync directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), DataDir(), StateDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
