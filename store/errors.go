package store

import "fmt"

var (
	// ErrClosed is returned when operations are attempted on a closed store
	ErrClosed = fmt.Errorf("store: store is closed")
	// ErrEmptyKey is returned when a record key is empty
	ErrEmptyKey = fmt.Errorf("store: empty key")
)

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("store: invalid config: %s", msg)
}

// ErrUnknownDriver is returned by Open for an unsupported driver name
func ErrUnknownDriver(driver string) error {
	return fmt.Errorf("store: unknown driver %q", driver)
}

// ErrConnection backend connection error
func ErrConnection(err error) error {
	return fmt.Errorf("store: connection failed: %w", err)
}

// ErrRead wraps a failure reading a record
func ErrRead(key string, err error) error {
	return fmt.Errorf("store: read %q failed: %w", key, err)
}

// ErrWrite wraps a failure writing or deleting a record
func ErrWrite(key string, err error) error {
	return fmt.Errorf("store: write %q failed: %w", key, err)
}
