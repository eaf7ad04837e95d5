package audit

import (
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures the ClickHouse sink
type Config struct {
	// clickhouse connection config
	Hosts       []string      `mapstructure:"hosts"`
	Database    string        `mapstructure:"database"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Debug       bool          `mapstructure:"debug"`
	// clickhouse settings passed to every query
	Settings clickhouse.Settings `mapstructure:"settings"`
	// Table events are inserted into
	// default: "offline_sync_events"
	Table string `mapstructure:"table"`
	// CreateTable issues CREATE TABLE IF NOT EXISTS at startup
	CreateTable bool `mapstructure:"create_table"`
	// DeviceID is stored with every row to tell clients apart
	DeviceID string `mapstructure:"device_id"`
	// FlushInterval between time-triggered flushes
	// default: 10s
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// FlushSize buffered events that trigger an immediate flush
	// default: 500
	FlushSize int `mapstructure:"flush_size"`
}

// DefaultConfig returns the default configuration for the sink
func DefaultConfig() *Config {
	return &Config{
		Database:      "default",
		DialTimeout:   10 * time.Second,
		Table:         "offline_sync_events",
		FlushInterval: 10 * time.Second,
		FlushSize:     500,
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.Table == "" {
		c.Table = defaults.Table
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaults.FlushInterval
	}
	if c.FlushSize == 0 {
		c.FlushSize = defaults.FlushSize
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch {
	case len(c.Hosts) == 0:
		return ErrInvalidConfig("hosts are required")
	case c.Username == "":
		return ErrInvalidConfig("username is required")
	case !tableNamePattern.MatchString(c.Table):
		return ErrInvalidConfig("table must be a plain identifier")
	case c.FlushInterval <= 0:
		return ErrInvalidConfig("flush_interval must be greater than 0")
	case c.FlushSize <= 0:
		return ErrInvalidConfig("flush_size must be greater than 0")
	}
	return nil
}
