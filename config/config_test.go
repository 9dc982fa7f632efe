package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/recordsync/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesYAML(t *testing.T) {
	t.Setenv("RECORDS_ROOT", "/srv/agent")

	cfg, err := LoadFromBytes([]byte(`
records:
  dir: ${RECORDS_ROOT}/records
  ignore:
    - "*.tmp"
    - ".#*"
  debounce: 250ms
sync:
  include_saved_events: true
daemon:
  socket: /tmp/recordsync.sock
logging:
  level: debug
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "/srv/agent/records", cfg.Records.Dir)
	assert.Equal(t, []string{"*.tmp", ".#*"}, cfg.Records.Ignore)
	assert.Equal(t, 250*time.Millisecond, cfg.Records.Debounce)
	assert.True(t, cfg.Sync.SavedEvents())
	assert.Equal(t, "/tmp/recordsync.sock", cfg.Daemon.Socket)
	assert.NotEmpty(t, cfg.Daemon.PidFile, "unset values get defaults")
	assert.Contains(t, cfg.Extensions, "logging")
}

func TestLoadFromBytesTOML(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
[records]
dir = "/data/records"
ignore = ["*.swp"]
debounce = "1s"

[sync]
include_saved_events = false

[monitoring]
interval = 30
`), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "/data/records", cfg.Records.Dir)
	assert.Equal(t, []string{"*.swp"}, cfg.Records.Ignore)
	assert.Equal(t, time.Second, cfg.Records.Debounce)
	assert.False(t, cfg.Sync.SavedEvents())

	var monitoring struct {
		Interval int `yaml:"interval"`
	}
	require.NoError(t, cfg.UnmarshalExtension("monitoring", &monitoring))
	assert.Equal(t, 30, monitoring.Interval)
}

func TestLoadFromBytesEmptyUsesDefaults(t *testing.T) {
	t.Setenv("RECORDSYNC_HOME", t.TempDir())

	cfg, err := LoadFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, Default().Records, cfg.Records)
	assert.Equal(t, DefaultDebounce, cfg.Records.Debounce)
	assert.True(t, cfg.Sync.SavedEvents())
	assert.NotNil(t, cfg.Extensions)
}

func TestEnvDefaultValue(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`records: {dir: "${RECORDSYNC_TEST_UNSET:-/fallback}"}`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/fallback", cfg.Records.Dir)
}

func TestLoadFromBytesErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		code   errors.ErrorCode
	}{
		{"malformed yaml", "records: [", FormatYAML, errors.ErrCodeConfigInvalid},
		{"malformed toml", "[records\ndir=", FormatTOML, errors.ErrCodeConfigInvalid},
		{"wrong type", "records:\n  debounce: soon\n", FormatYAML, errors.ErrCodeConfigInvalid},
		{"negative debounce", "records:\n  debounce: -5ms\n", FormatYAML, errors.ErrCodeConfigValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), err.Error())
		})
	}
}

func TestExtensions(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
logging:
  level: warn
  report_caller: true
  format:
    preset: json
`), FormatYAML)
	require.NoError(t, err)

	var logCfg struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
		Format       struct {
			Preset string `yaml:"preset"`
		} `yaml:"format"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "warn", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)
	assert.Equal(t, "json", logCfg.Format.Preset)

	var missing struct{ Value string }
	require.NoError(t, cfg.UnmarshalExtension("absent", &missing))
	assert.Empty(t, missing.Value)
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("RECORDSYNC_HOME", t.TempDir())

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, err := FindConfigFile(nested)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	want := filepath.Join(root, "recordsync.toml")
	require.NoError(t, os.WriteFile(want, []byte("[sync]\ninclude_saved_events = true\n"), 0o644))

	got, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.True(t, cfg.Sync.SavedEvents())
	assert.Equal(t, want, cfg.Path)
}

func TestFindConfigFileUserDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RECORDSYNC_HOME", home)

	userDir := filepath.Join(home, "config")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	want := filepath.Join(userDir, "recordsync.yml")
	require.NoError(t, os.WriteFile(want, []byte("sync: {include_saved_events: true}\n"), 0o644))

	got, err := FindConfigFile(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("RECORDSYNC_HOME", t.TempDir())

	cfg, err := LoadOrDefault(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, DefaultDebounce, cfg.Records.Debounce)

	_, err = LoadOrDefault(t.TempDir(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"include_saved_events"`)
	assert.NotContains(t, string(data), "Extensions")
}
