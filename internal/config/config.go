// Package config provides configuration loading and management for the
// fleet daemon.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaeaops/fleetkeeper/internal/aggregator"
	"github.com/gaeaops/fleetkeeper/internal/fleet/manager"
	"github.com/gaeaops/fleetkeeper/internal/gaea"
	"github.com/gaeaops/fleetkeeper/internal/logbuf"
	"github.com/gaeaops/fleetkeeper/internal/store"
)

// EnvPrefix is the prefix for environment variable configuration
const EnvPrefix = "FLEETKEEPER"

// DefaultAddress is the default listen address for the control API
const DefaultAddress = ":8080"

// Config represents the root configuration structure
type Config struct {
	// Address is the listen address for the control API
	Address string `yaml:"address,omitempty"`

	// Gaea configures the remote keepalive service client
	Gaea GaeaConfig `yaml:"gaea,omitempty"`

	// Fleet configures the scheduling intervals
	Fleet FleetConfig `yaml:"fleet,omitempty"`

	// Database optionally configures the account import source
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// Metrics enables the Prometheus scrape endpoint
	Metrics bool `yaml:"metrics,omitempty"`

	// LogBufferSize is the number of log lines retained for the logs endpoint
	LogBufferSize int `yaml:"logBufferSize,omitempty"`
}

// GaeaConfig configures the remote service client
type GaeaConfig struct {
	// BaseURL is the remote service endpoint
	BaseURL string `yaml:"baseURL,omitempty"`

	// Version is the client version string sent with each ping
	Version string `yaml:"version,omitempty"`

	// RequestTimeout bounds every remote call, e.g. "30s"
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
}

// FleetConfig configures the worker scheduling intervals. All values are
// duration strings, e.g. "10m".
type FleetConfig struct {
	// PingInterval is the keepalive period on the success path
	PingInterval string `yaml:"pingInterval,omitempty"`

	// ErrorBackoff is the retry delay after a failed ping
	ErrorBackoff string `yaml:"errorBackoff,omitempty"`

	// InfoInterval is the status aggregation and info refresh period
	InfoInterval string `yaml:"infoInterval,omitempty"`

	// StartJitterWindow is the window over which fleet-wide starts are spread
	StartJitterWindow string `yaml:"startJitterWindow,omitempty"`
}

// DatabaseConfig configures the optional account import on startup
type DatabaseConfig struct {
	// DSN is the Postgres connection string
	DSN string `yaml:"dsn"`

	// Table is the table accounts are read from, defaults to "accounts"
	Table string `yaml:"table,omitempty"`
}

// GetAddress returns the listen address, using the default if unset
func (c *Config) GetAddress() string {
	if c.Address == "" {
		return DefaultAddress
	}
	return c.Address
}

// GetBaseURL returns the remote service base URL, using the default if unset
func (c *Config) GetBaseURL() string {
	if c.Gaea.BaseURL == "" {
		return gaea.DefaultBaseURL
	}
	return c.Gaea.BaseURL
}

// GetClientVersion returns the ping version string, using the default if unset
func (c *Config) GetClientVersion() string {
	if c.Gaea.Version == "" {
		return gaea.DefaultVersion
	}
	return c.Gaea.Version
}

// GetRequestTimeout returns the remote call timeout
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Gaea.RequestTimeout, gaea.DefaultTimeout)
}

// GetPingInterval returns the keepalive period
func (c *Config) GetPingInterval() time.Duration {
	return parseDuration(c.Fleet.PingInterval, manager.DefaultPingInterval)
}

// GetErrorBackoff returns the failed-ping retry delay
func (c *Config) GetErrorBackoff() time.Duration {
	return parseDuration(c.Fleet.ErrorBackoff, manager.DefaultErrorBackoff)
}

// GetInfoInterval returns the aggregation cycle period
func (c *Config) GetInfoInterval() time.Duration {
	return parseDuration(c.Fleet.InfoInterval, aggregator.DefaultInterval)
}

// GetStartJitterWindow returns the fleet-start jitter window
func (c *Config) GetStartJitterWindow() time.Duration {
	return parseDuration(c.Fleet.StartJitterWindow, manager.DefaultStartJitterWindow)
}

// GetLogBufferSize returns the retained log line count
func (c *Config) GetLogBufferSize() int {
	if c.LogBufferSize <= 0 {
		return logbuf.DefaultCapacity
	}
	return c.LogBufferSize
}

// GetTable returns the account import table name
func (d *DatabaseConfig) GetTable() string {
	if d.Table == "" {
		return store.DefaultTable
	}
	return d.Table
}

// parseDuration parses a duration string, falling back to def when the
// value is empty or invalid.
func parseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Gaea.BaseURL != "" {
		u, err := url.Parse(c.Gaea.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid gaea.baseURL %q", c.Gaea.BaseURL)
		}
	}

	durations := map[string]string{
		"gaea.requestTimeout":     c.Gaea.RequestTimeout,
		"fleet.pingInterval":      c.Fleet.PingInterval,
		"fleet.errorBackoff":      c.Fleet.ErrorBackoff,
		"fleet.infoInterval":      c.Fleet.InfoInterval,
		"fleet.startJitterWindow": c.Fleet.StartJitterWindow,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q", field, value)
		}
	}

	if c.Database != nil && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database is configured")
	}

	return nil
}

// Loader loads configuration from disk
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a YAML configuration file. An empty path returns
// the default configuration.
func (*Loader) Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	// Resolve symlinks to prevent symlink attacks.
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}

	data, err := os.ReadFile(realPath) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
