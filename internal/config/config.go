// Package config loads the YAML application configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for barkeep.
type Config struct {
	Storage Storage `yaml:"storage"`
	Massive Massive `yaml:"massive"`
	Ingest  Ingest  `yaml:"ingest"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Storage selects and parameterizes the bar store backend.
type Storage struct {
	// Driver is "sqlite" or "postgres".
	Driver       string `yaml:"driver"`
	SQLitePath   string `yaml:"sqlite_path"`
	PostgresURL  string `yaml:"postgres_url"`
	TickerDBPath string `yaml:"tickerdb_path"`
	ExportDir    string `yaml:"export_dir"`
}

// Massive holds credentials and tuning for the Massive market-data API.
type Massive struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	MaxRetries      int    `yaml:"max_retries"`
	RetryDelaySec   int    `yaml:"retry_delay_sec"`
	CooldownSec     int    `yaml:"cooldown_sec"` // sleep on HTTP 429
	PageLimit       int    `yaml:"page_limit"`   // rows per aggregates page
	MaxRows         int    `yaml:"max_rows"`     // pagination safety cap
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Ingest holds defaults for ingestion and availability checks.
type Ingest struct {
	DefaultInterval string `yaml:"default_interval"`
	DefaultDays     int    `yaml:"default_days"`
	StalenessDays   int    `yaml:"staleness_days"`
	MinRows         int    `yaml:"min_rows"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults for unset fields, and then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a Config with all defaults applied and no file loaded.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "barkeep.db"
	}
	if cfg.Storage.TickerDBPath == "" {
		cfg.Storage.TickerDBPath = "tickers.db"
	}
	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = "exports"
	}
	if cfg.Massive.BaseURL == "" {
		cfg.Massive.BaseURL = "https://api.massive.com"
	}
	if cfg.Massive.TimeoutSec == 0 {
		cfg.Massive.TimeoutSec = 30
	}
	if cfg.Massive.MaxRetries == 0 {
		cfg.Massive.MaxRetries = 3
	}
	if cfg.Massive.RetryDelaySec == 0 {
		cfg.Massive.RetryDelaySec = 1
	}
	if cfg.Massive.CooldownSec == 0 {
		cfg.Massive.CooldownSec = 60
	}
	if cfg.Massive.PageLimit == 0 {
		cfg.Massive.PageLimit = 1000
	}
	if cfg.Massive.MaxRows == 0 {
		cfg.Massive.MaxRows = 50000
	}
	if cfg.Ingest.DefaultInterval == "" {
		cfg.Ingest.DefaultInterval = "1day"
	}
	if cfg.Ingest.DefaultDays == 0 {
		cfg.Ingest.DefaultDays = 90
	}
	if cfg.Ingest.StalenessDays == 0 {
		cfg.Ingest.StalenessDays = 1
	}
	if cfg.Ingest.MinRows == 0 {
		cfg.Ingest.MinRows = 1
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5006
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MASSIVE_API_KEY"); v != "" {
		cfg.Massive.APIKey = v
	}
	if v := os.Getenv("MASSIVE_BASE_URL"); v != "" {
		cfg.Massive.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.PostgresURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("TICKERDB_PATH"); v != "" {
		cfg.Storage.TickerDBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
