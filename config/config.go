// Package config loads the auction service configuration from YAML with
// sane defaults for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grandline/auctionhouse/store"
)

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	// Driver is one of "postgres", "sqlite" or "memory".
	Driver string `yaml:"driver"`

	// DSN is the raw connection string for the postgres driver. When
	// set it takes precedence over the Postgres block.
	DSN string `yaml:"dsn"`

	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`

	Postgres store.PostgresConfig `yaml:"postgres"`
}

// Config is the top-level service configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`

	Store StoreConfig `yaml:"store"`

	// WebhookURL receives lifecycle events; empty disables delivery.
	WebhookURL string `yaml:"webhook_url"`

	// DirectoryURL is the channel lookup endpoint; empty treats every
	// channel as existing.
	DirectoryURL string `yaml:"directory_url"`

	// CatalogPath is the YAML market catalog file.
	CatalogPath string `yaml:"catalog_path"`

	SweepInterval time.Duration `yaml:"sweep_interval"`

	// SpeedChannels get relaxed duration minimums and no last-call ping.
	SpeedChannels []int64 `yaml:"speed_channels"`

	// TestMode relaxes bid ownership checks for local testing.
	TestMode bool `yaml:"test_mode"`

	DrainDuration            time.Duration `yaml:"drain_duration"`
	GracefulShutdownDuration time.Duration `yaml:"graceful_shutdown_duration"`
}

// DefaultConfig returns a configuration suitable for local development:
// an in-memory store and no external endpoints.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:               ":8080",
		Store:                    StoreConfig{Driver: "memory"},
		SweepInterval:            30 * time.Second,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
	}
}

// LoadConfig reads and validates a YAML configuration file. Unset fields
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver selection and required backend settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store: sqlite driver requires a path")
		}
	case "postgres":
		if c.Store.DSN == "" && c.Store.Postgres.Host == "" {
			return fmt.Errorf("store: postgres driver requires a dsn or a postgres block")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}

// SpeedChannelSet returns the speed channel list as a lookup set.
func (c *Config) SpeedChannelSet() map[int64]bool {
	set := make(map[int64]bool, len(c.SpeedChannels))
	for _, id := range c.SpeedChannels {
		set[id] = true
	}
	return set
}
