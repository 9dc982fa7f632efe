package config

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

import (
	"time"

	"github.com/grovetools/recordsync/pkg/paths"
)

// DefaultDebounce is how long the records watcher waits for a file to settle.
const DefaultDebounce = 100 * time.Millisecond

// Config is the parsed recordsync.yml.
type Config struct {
	Records RecordsConfig `json:"records" yaml:"records" mapstructure:"records" jsonschema:"description=Agent records directory feed"`
	Sync    SyncConfig    `json:"sync" yaml:"sync" mapstructure:"sync" jsonschema:"description=Mirror behaviour"`
	Daemon  DaemonConfig  `json:"daemon" yaml:"daemon" mapstructure:"daemon" jsonschema:"description=Daemon socket and pid file"`

	// Extensions holds every other top-level section (for example "logging").
	// Read them with UnmarshalExtension.
	Extensions map[string]interface{} `json:"-" yaml:",inline" mapstructure:",remain"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `json:"-" yaml:"-" mapstructure:"-"`
}

// RecordsConfig configures the directory-backed agent.
type RecordsConfig struct {
	Dir      string        `json:"dir" yaml:"dir" mapstructure:"dir" jsonschema:"description=Directory holding connections/ credentials/ and proofs/"`
	Ignore   []string      `json:"ignore" yaml:"ignore" mapstructure:"ignore" jsonschema:"description=Patterns of files to skip (dockerignore syntax)"`
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce" jsonschema:"minimum=0,description=Settle time before a changed file is re-read"`
}

// SyncConfig configures the mirrors.
type SyncConfig struct {
	// IncludeSavedEvents defaults to true: records created by the directory feed only announce
	// themselves with RecordSaved.
	IncludeSavedEvents *bool `json:"include_saved_events" yaml:"include_saved_events" mapstructure:"include_saved_events" jsonschema:"description=Also apply RecordSaved events as upserts. Defaults to true; false mirrors updates and deletions only"`
}

// SavedEvents reports whether mirrors should apply RecordSaved events.
func (s SyncConfig) SavedEvents() bool {
	return s.IncludeSavedEvents == nil || *s.IncludeSavedEvents
}

// DaemonConfig locates the daemon.
type DaemonConfig struct {
	Socket  string `json:"socket" yaml:"socket" mapstructure:"socket" jsonschema:"description=Unix socket the daemon listens on"`
	PidFile string `json:"pid_file" yaml:"pid_file" mapstructure:"pid_file" jsonschema:"description=Daemon PID file"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Records.Dir == "" {
		c.Records.Dir = paths.RecordsDir()
	}
	if c.Records.Ignore == nil {
		c.Records.Ignore = []string{}
	}
	if c.Sync.IncludeSavedEvents == nil {
		include := true
		c.Sync.IncludeSavedEvents = &include
	}
	if c.Records.Debounce == 0 {
		c.Records.Debounce = DefaultDebounce
	}
	if c.Daemon.Socket == "" {
		c.Daemon.Socket = paths.SocketPath()
	}
	if c.Daemon.PidFile == "" {
		c.Daemon.PidFile = paths.PidFilePath()
	}
	if c.Extensions == nil {
		c.Extensions = map[string]interface{}{}
	}
}
