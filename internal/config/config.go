// Package config loads the headline-lab configuration from a YAML file,
// a .env file, and environment overrides, in that order of precedence
// (env wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// BeaconRateLimit is the sustained beacons/second the server accepts
	// before shedding load; BeaconBurst is the burst allowance on top.
	BeaconRateLimit float64 `yaml:"beacon_rate_limit"`
	BeaconBurst     int     `yaml:"beacon_burst"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

type EngineConfig struct {
	TestDurationMinutes int `yaml:"test_duration_minutes"`
	MaxVariants         int `yaml:"max_variants"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config at path, layering .env and environment
// overrides on top. A missing file is not an error: defaults apply, so
// the CLI works with no config at all.
func Load(path string) (*Config, error) {
	// Load .env if present (silently skipped otherwise)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TestDuration returns the configured test window as a time.Duration.
func (c *Config) TestDuration() time.Duration {
	return time.Duration(c.Engine.TestDurationMinutes) * time.Minute
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HL_DB_PATH"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BeaconRateLimit == 0 {
		cfg.Server.BeaconRateLimit = 50
	}
	if cfg.Server.BeaconBurst == 0 {
		cfg.Server.BeaconBurst = 100
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "./headline-lab.db"
	}
	if cfg.Engine.TestDurationMinutes == 0 {
		cfg.Engine.TestDurationMinutes = 30
	}
	if cfg.Engine.MaxVariants == 0 {
		cfg.Engine.MaxVariants = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// SetupLogger installs the process-wide slog default per the log config.
func SetupLogger(cfg LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
