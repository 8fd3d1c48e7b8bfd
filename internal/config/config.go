package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dgadling/hyperion/internal/discovery"
	"github.com/dgadling/hyperion/internal/fetch"
	"github.com/dgadling/hyperion/internal/store"
)

// Config represents the application configuration
type Config struct {
	Database    store.Config      `toml:"database"`
	Fetch       fetch.Config      `toml:"fetch"`
	Throttle    ThrottleConfig    `toml:"throttle"`
	Discovery   DiscoveryConfig   `toml:"discovery"`
	Spartan     SpartanConfig     `toml:"spartan"`
	Chronotrack ChronotrackConfig `toml:"chronotrack"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ThrottleConfig holds the randomized inter-request delay bounds
type ThrottleConfig struct {
	MinSleep time.Duration `toml:"min_sleep"`
	MaxSleep time.Duration `toml:"max_sleep"`
}

// DiscoveryConfig holds candidate scan settings
type DiscoveryConfig struct {
	// Low and High bound the id scan range; they only matter on the very
	// first run, before a state file exists
	Low  int `toml:"low"`
	High int `toml:"high"`

	StateFile   string `toml:"state_file"`
	WinnersFile string `toml:"winners_file"`

	Engine discovery.Config `toml:"engine"`
}

// SpartanConfig holds race listing settings
type SpartanConfig struct {
	FindRaceURL string `toml:"find_race_url"`
	// CacheFile, when set, caches the fetched race list on disk
	CacheFile string `toml:"cache_file"`
}

// ChronotrackConfig holds timing endpoint settings
type ChronotrackConfig struct {
	BaseURL         string `toml:"base_url"`
	EventInfoDir    string `toml:"event_info_dir"`
	InterestingFile string `toml:"interesting_file"`
	ResultsDir      string `toml:"results_dir"`
	BatchSize       int    `toml:"batch_size"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: store.Config{
			Driver:          "sqlite3",
			DSN:             "hyperion.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Fetch: fetch.DefaultConfig(),
		Throttle: ThrottleConfig{
			MinSleep: 30 * time.Millisecond,
			MaxSleep: 3090 * time.Millisecond,
		},
		Discovery: DiscoveryConfig{
			Low:         2900,
			High:        46713,
			StateFile:   "race_finder_state.json",
			WinnersFile: "winners.txt",
			Engine: discovery.Config{
				DetailURL: "https://results.chronotrack.com/event/results/event/event-%d",
				Marker:    "spartan",
			},
		},
		Spartan: SpartanConfig{
			FindRaceURL: "https://www.spartan.com/en/race/find-race",
			CacheFile:   "",
		},
		Chronotrack: ChronotrackConfig{
			BaseURL:         "https://results.chronotrack.com",
			EventInfoDir:    "raw_event_results",
			InterestingFile: "interesting_events.json",
			ResultsDir:      "race-results",
			BatchSize:       500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file on top of defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(configPath)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Database.Driver == "" || c.Database.DSN == "" {
		return fmt.Errorf("database driver and dsn are required")
	}

	if c.Throttle.MinSleep < 0 {
		return fmt.Errorf("throttle min_sleep must be non-negative, got %v", c.Throttle.MinSleep)
	}
	if c.Throttle.MaxSleep < c.Throttle.MinSleep {
		return fmt.Errorf("throttle max_sleep (%v) must be >= min_sleep (%v)",
			c.Throttle.MaxSleep, c.Throttle.MinSleep)
	}

	if c.Discovery.High < c.Discovery.Low {
		return fmt.Errorf("discovery high (%d) must be >= low (%d)", c.Discovery.High, c.Discovery.Low)
	}
	if c.Discovery.StateFile == "" {
		return fmt.Errorf("discovery state_file is required")
	}
	if c.Discovery.WinnersFile == "" {
		return fmt.Errorf("discovery winners_file is required")
	}
	if c.Discovery.Engine.DetailURL == "" || c.Discovery.Engine.Marker == "" {
		return fmt.Errorf("discovery engine detail_url and marker are required")
	}

	if c.Chronotrack.BatchSize <= 0 {
		return fmt.Errorf("chronotrack batch_size must be positive, got %d", c.Chronotrack.BatchSize)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}
