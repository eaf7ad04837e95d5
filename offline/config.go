package offline

import "time"

// Config is the configuration for the offline manager
type Config struct {
	// DefaultTTL applies when SetCache is called with ttl <= 0
	// default: 30m
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// MaxRetries failed attempts after which a queued operation is abandoned
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// SyncInterval between periodic sync passes while online
	// default: 5m
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// SendTimeout bounds every single delivery attempt
	// default: 30s
	SendTimeout time.Duration `mapstructure:"send_timeout"`
	// CacheRecordKey is the store key of the cache record
	// default: "app_cache"
	CacheRecordKey string `mapstructure:"cache_record_key"`
	// QueueRecordKey is the store key of the pending queue record
	// default: "pending_syncs"
	QueueRecordKey string `mapstructure:"queue_record_key"`
}

// DefaultConfig returns the default configuration for the offline manager
func DefaultConfig() *Config {
	return &Config{
		DefaultTTL:     30 * time.Minute,
		MaxRetries:     3,
		SyncInterval:   5 * time.Minute,
		SendTimeout:    30 * time.Second,
		CacheRecordKey: "app_cache",
		QueueRecordKey: "pending_syncs",
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.DefaultTTL == 0 {
		c.DefaultTTL = defaults.DefaultTTL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = defaults.SyncInterval
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = defaults.SendTimeout
	}
	if c.CacheRecordKey == "" {
		c.CacheRecordKey = defaults.CacheRecordKey
	}
	if c.QueueRecordKey == "" {
		c.QueueRecordKey = defaults.QueueRecordKey
	}
	return c
}

// Validate validates the configuration for the offline manager
func (c *Config) Validate() error {
	if c.DefaultTTL <= 0 {
		return ErrInvalidTTL(c.DefaultTTL)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	if c.SyncInterval <= 0 {
		return ErrInvalidSyncInterval(c.SyncInterval)
	}
	if c.SendTimeout <= 0 {
		return ErrInvalidSendTimeout(c.SendTimeout)
	}
	if c.CacheRecordKey == "" || c.QueueRecordKey == "" {
		return ErrInvalidConfig("record keys must not be empty")
	}
	if c.CacheRecordKey == c.QueueRecordKey {
		return ErrInvalidConfig("cache_record_key and queue_record_key must differ")
	}
	return nil
}
