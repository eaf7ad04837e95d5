package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Supported drivers
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMySQL  = "mysql"
)

var validDrivers = []string{DriverMemory, DriverFile, DriverRedis, DriverMySQL}

// Config selects and configures a backend
type Config struct {
	// Driver is one of memory, file, redis, mysql
	// default: "file"
	Driver string `mapstructure:"driver"`
	// File is used when Driver is "file"
	File FileConfig `mapstructure:"file"`
	// Redis is used when Driver is "redis"
	Redis *RedisConfig `mapstructure:"redis"`
	// MySQL is used when Driver is "mysql"
	MySQL *MySQLConfig `mapstructure:"mysql"`
}

// FileConfig configures the file backend
type FileConfig struct {
	// Dir is the directory records are written to
	// default: "./data/offline"
	Dir string `mapstructure:"dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Driver: DriverFile,
		File:   FileConfig{Dir: "./data/offline"},
	}
}

// MergeDefaults fills empty fields with default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Driver == "" {
		c.Driver = defaults.Driver
	}
	if c.File.Dir == "" {
		c.File.Dir = defaults.File.Dir
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	driver := strings.ToLower(c.Driver)
	if !slices.Contains(validDrivers, driver) {
		return ErrInvalidConfig(fmt.Sprintf("driver %q must be one of: %s", c.Driver, strings.Join(validDrivers, ", ")))
	}
	if driver == DriverRedis && c.Redis == nil {
		return ErrInvalidConfig("redis section is required for driver redis")
	}
	if driver == DriverMySQL && c.MySQL == nil {
		return ErrInvalidConfig("mysql section is required for driver mysql")
	}
	return nil
}

// RedisConfig holds configuration for the Redis backend
type RedisConfig struct {
	// Addr is host:port of the redis server
	// default: "localhost:6379"
	Addr string `mapstructure:"addr"`
	// Username for ACL authentication (redis >= 6)
	Username string `mapstructure:"username"`
	// Password for authentication
	Password string `mapstructure:"password"`
	// DB is the database index
	DB int `mapstructure:"db"`
	// KeyPrefix is prepended to every record key, e.g. "aula:user42:"
	KeyPrefix string `mapstructure:"key_prefix"`
	// default: 10
	PoolSize int `mapstructure:"pool_size"`
	// MaxRetries before giving up a command
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// default: 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// default: 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultRedisConfig returns the default configuration for the Redis backend
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *RedisConfig) MergeDefaults() *RedisConfig {
	defaults := DefaultRedisConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	return c
}

// Validate validates the Redis configuration
func (c *RedisConfig) Validate() error {
	switch {
	case c.Addr == "":
		return ErrInvalidConfig("redis.addr is required")
	case c.DB < 0:
		return ErrInvalidConfig("redis.db cannot be negative")
	case c.PoolSize < 0:
		return ErrInvalidConfig("redis.pool_size cannot be negative")
	case c.MaxRetries < 0:
		return ErrInvalidConfig("redis.max_retries cannot be negative")
	case c.DialTimeout < 0, c.ReadTimeout < 0, c.WriteTimeout < 0:
		return ErrInvalidConfig("redis timeouts cannot be negative")
	}
	return nil
}

// Options converts the configuration to go-redis options
func (c *RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// MySQLConfig holds configuration for the MySQL backend
type MySQLConfig struct {
	Host string `mapstructure:"host"`
	// default: 3306
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// Table holding the records
	// default: "offline_records"
	Table string `mapstructure:"table"`
	// default: 5
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// default: 2
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// default: 1800s
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogLevel is the gorm log level: silent, error, warn, info
	// default: "warn"
	LogLevel string `mapstructure:"log_level"`
	// default: 1s
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// DSN returns the go-sql-driver DSN
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// DefaultMySQLConfig returns the default configuration for the MySQL backend
func DefaultMySQLConfig() *MySQLConfig {
	return &MySQLConfig{
		Port:            3306,
		Table:           "offline_records",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 1800 * time.Second,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *MySQLConfig) MergeDefaults() *MySQLConfig {
	defaults := DefaultMySQLConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.Table == "" {
		c.Table = defaults.Table
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = defaults.SlowThreshold
	}
	return c
}

// Validate validates the MySQL configuration
func (c *MySQLConfig) Validate() error {
	if c.Host == "" {
		return ErrInvalidConfig("mysql.host is required")
	}
	if c.Port <= 0 {
		return ErrInvalidConfig("mysql.port is required")
	}
	if c.User == "" {
		return ErrInvalidConfig("mysql.user is required")
	}
	if c.Database == "" {
		return ErrInvalidConfig("mysql.database is required")
	}
	validLogLevels := []string{"silent", "error", "warn", "info"}
	if !slices.ContainsFunc(validLogLevels, func(level string) bool {
		return strings.EqualFold(c.LogLevel, level)
	}) {
		return ErrInvalidConfig(fmt.Sprintf("mysql.log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	return nil
}
