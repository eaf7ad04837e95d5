package audit

import "fmt"

// ErrSinkClosed is returned when flushing a closed sink
var ErrSinkClosed = fmt.Errorf("audit: sink is closed")

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("audit: invalid config: %s", msg)
}

// ErrConnection ClickHouse connection error
func ErrConnection(err error) error {
	return fmt.Errorf("audit: connection failed: %w", err)
}

// ErrInsert batch insert error
func ErrInsert(table string, err error) error {
	return fmt.Errorf("audit: insert to table %s failed: %w", table, err)
}
