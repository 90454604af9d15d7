package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the main configuration struct, loaded from YAML with env
// and flag overrides applied on top.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig holds the remote endpoint settings.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	Timeout string `yaml:"timeout"` // per-call upper bound, e.g. "10s"
}

// StorageConfig holds the local cache settings.
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	CacheSize string `yaml:"cache_size"` // pebble block cache, e.g. "32MB"
}

// SyncConfig drives the reconciliation scheduler.
type SyncConfig struct {
	Interval string  `yaml:"interval"` // ticker period, e.g. "5m"
	Cron     string  `yaml:"cron"`     // optional cron expression; wins over interval
	RPS      float64 `yaml:"rps"`      // manual-trigger rate limit
	Burst    int     `yaml:"burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig exposes prometheus metrics over a local listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Timeout returns the per-call network timeout, defaulting to 10s.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.API.Timeout, 10*time.Second)
}

// SyncInterval returns the background sync period, defaulting to 5m.
func (c *Config) SyncInterval() time.Duration {
	return parseDuration(c.Sync.Interval, 5*time.Minute)
}

// CacheBytes parses the configured pebble cache size ("32MB", "1GiB").
// Zero means pebble's default.
func (c *Config) CacheBytes() (int64, error) {
	if c.Storage.CacheSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Storage.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("invalid storage.cache_size %q: %w", c.Storage.CacheSize, err)
	}
	return int64(n), nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
