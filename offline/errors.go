package offline

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrOfflineNoCache is returned by GetCachedOrFetch when the manager is
	// offline and nothing, fresh or stale, is cached under the key
	ErrOfflineNoCache = fmt.Errorf("offline: offline and no cached data")
	// ErrManagerClosed is returned when operations are attempted on a closed manager
	ErrManagerClosed = fmt.Errorf("offline: manager is closed")
	// ErrNilSender is returned by New when no remote sender is configured
	ErrNilSender = fmt.Errorf("offline: sender is required")
)

// Error constructors

// ErrInvalidConfig returns an error for an invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("offline: invalid config: %s", msg)
}

// ErrInvalidTTL returns an error for an invalid default TTL
func ErrInvalidTTL(ttl time.Duration) error {
	return fmt.Errorf("offline: invalid default ttl: %v (must be > 0)", ttl)
}

// ErrInvalidMaxRetries returns an error for an invalid retry ceiling
func ErrInvalidMaxRetries(n int) error {
	return fmt.Errorf("offline: invalid max retries: %d (must be >= 1)", n)
}

// ErrInvalidSyncInterval returns an error for an invalid sync interval
func ErrInvalidSyncInterval(interval time.Duration) error {
	return fmt.Errorf("offline: invalid sync interval: %v (must be > 0)", interval)
}

// ErrInvalidSendTimeout returns an error for an invalid send timeout
func ErrInvalidSendTimeout(timeout time.Duration) error {
	return fmt.Errorf("offline: invalid send timeout: %v (must be > 0)", timeout)
}

// ErrEncode wraps a JSON encoding failure for key
func ErrEncode(key string, err error) error {
	return fmt.Errorf("offline: encode %s: %w", key, err)
}

// ErrDecode wraps a JSON decoding failure for key
func ErrDecode(key string, err error) error {
	return fmt.Errorf("offline: decode %s: %w", key, err)
}

// ErrOperationID wraps a failure to generate an operation id
func ErrOperationID(err error) error {
	return fmt.Errorf("offline: generate operation id: %w", err)
}

func errNoCache(key string) error {
	return fmt.Errorf("%w: %s", ErrOfflineNoCache, key)
}
