package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 30*time.Millisecond, cfg.Throttle.MinSleep)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
dsn = "/var/lib/hyperion/races.db"

[discovery]
low = 100
high = 200
state_file = "custom_state.json"

[throttle]
min_sleep = "10ms"
max_sleep = "50ms"

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/hyperion/races.db", cfg.Database.DSN)
	assert.Equal(t, "sqlite3", cfg.Database.Driver, "unset fields keep their defaults")
	assert.Equal(t, 100, cfg.Discovery.Low)
	assert.Equal(t, "custom_state.json", cfg.Discovery.StateFile)
	assert.Equal(t, 10*time.Millisecond, cfg.Throttle.MinSleep)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted scan range", func(c *Config) { c.Discovery.Low = 10; c.Discovery.High = 5 }},
		{"inverted throttle", func(c *Config) { c.Throttle.MinSleep = time.Second; c.Throttle.MaxSleep = time.Millisecond }},
		{"missing state file", func(c *Config) { c.Discovery.StateFile = "" }},
		{"missing winners file", func(c *Config) { c.Discovery.WinnersFile = "" }},
		{"missing marker", func(c *Config) { c.Discovery.Engine.Marker = "" }},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero batch size", func(c *Config) { c.Chronotrack.BatchSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
