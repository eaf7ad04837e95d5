package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dailyyoga/offlinekit/audit"
	"github.com/dailyyoga/offlinekit/connectivity"
	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/offline"
	"github.com/dailyyoga/offlinekit/remote"
	"github.com/dailyyoga/offlinekit/store"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "AULASYNC"

// Supported transports
const (
	transportHTTP  = "http"
	transportKafka = "kafka"
)

// Config is the daemon configuration
type Config struct {
	Logger       *logger.Config     `mapstructure:"logger"`
	Store        *store.Config      `mapstructure:"store"`
	Offline      *offline.Config    `mapstructure:"offline"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// RemoteConfig selects where queued changes are delivered
type RemoteConfig struct {
	// Transport is http or kafka
	// default: "http"
	Transport string              `mapstructure:"transport"`
	HTTP      *remote.HTTPConfig  `mapstructure:"http"`
	Kafka     *remote.KafkaConfig `mapstructure:"kafka"`
}

// ConnectivityConfig configures how the online flag is derived
type ConnectivityConfig struct {
	// StartOnline is the state assumed until the first probe
	StartOnline bool `mapstructure:"start_online"`
	// Prober polls a health URL; without a URL the flag stays at StartOnline
	Prober *connectivity.ProberConfig `mapstructure:"prober"`
}

// AuditConfig enables the ClickHouse audit sink
type AuditConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	ClickHouse *audit.Config `mapstructure:"clickhouse"`
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("logger.name", "aulasync")

	v.SetDefault("store.driver", store.DriverFile)
	v.SetDefault("store.file.dir", "./data/offline")

	off := offline.DefaultConfig()
	v.SetDefault("offline.default_ttl", off.DefaultTTL)
	v.SetDefault("offline.max_retries", off.MaxRetries)
	v.SetDefault("offline.sync_interval", off.SyncInterval)
	v.SetDefault("offline.send_timeout", off.SendTimeout)

	v.SetDefault("remote.transport", transportHTTP)
	v.SetDefault("remote.http.base_url", remote.DefaultHTTPConfig().BaseURL)
	v.SetDefault("remote.http.token", "")

	v.SetDefault("connectivity.start_online", false)
	v.SetDefault("connectivity.prober.url", "")

	v.SetDefault("audit.enabled", false)
}

// loadConfig reads envFile (if it exists), then path (if set), then
// AULASYNC_* environment variables, e.g. AULASYNC_REMOTE_HTTP_TOKEN
func loadConfig(envFile, path string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.mergeDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeDefaults() {
	if c.Logger == nil {
		c.Logger = logger.DefaultConfig()
	}
	if c.Store == nil {
		c.Store = store.DefaultConfig()
	}
	if c.Offline == nil {
		c.Offline = offline.DefaultConfig()
	}
	c.Offline.MergeDefaults()
	if c.Remote.Transport == "" {
		c.Remote.Transport = transportHTTP
	}
	c.Remote.Transport = strings.ToLower(c.Remote.Transport)
	if c.Remote.HTTP == nil {
		c.Remote.HTTP = remote.DefaultHTTPConfig()
	}
	if c.Connectivity.Prober == nil {
		c.Connectivity.Prober = connectivity.DefaultProberConfig()
	}
	if c.Audit.ClickHouse == nil {
		c.Audit.ClickHouse = audit.DefaultConfig()
	}
}

func (c *Config) validate() error {
	switch c.Remote.Transport {
	case transportHTTP:
	case transportKafka:
		if c.Remote.Kafka == nil {
			return fmt.Errorf("remote.kafka is required for the kafka transport")
		}
	default:
		return fmt.Errorf("unknown remote.transport %q (want http or kafka)", c.Remote.Transport)
	}
	return c.Offline.Validate()
}
