// Package store provides the durable key-value port the offline manager
// persists its records through.
//
// A record is an opaque string, written as a whole on every mutation. Absence
// is reported as ok == false with a nil error so callers can tell a missing
// record from an unreadable one.
//
// Available backends:
//   - Memory: process-local map, for tests and ephemeral sessions
//   - File: one file per key under a directory (desktop local storage)
//   - Redis: go-redis client, keys optionally prefixed per user/device
//   - MySQL: GORM table of key/value rows
package store

import (
	"context"
	"strings"

	"github.com/dailyyoga/offlinekit/logger"
)

// Store is a durable key-value store of string records
type Store interface {
	// Get returns the record stored under key.
	// ok is false when no record exists.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set overwrites the record stored under key
	Set(ctx context.Context, key, value string) error
	// Delete removes the record; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Close releases the resources held by the backend
	Close() error
}

// Open creates the backend selected by cfg.Driver
func Open(log logger.Logger, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(cfg.File.Dir)
	case DriverRedis:
		return NewRedis(log, cfg.Redis)
	case DriverMySQL:
		return NewMySQL(log, cfg.MySQL)
	default:
		return nil, ErrUnknownDriver(cfg.Driver)
	}
}
