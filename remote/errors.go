package remote

import (
	"fmt"
)

var (
	// ErrNilSender is returned when a nil sender is supplied
	ErrNilSender = fmt.Errorf("remote: sender is nil")
	// ErrSenderClosed is returned when sending through a closed sender
	ErrSenderClosed = fmt.Errorf("remote: sender is closed")
)

// StatusError is returned by HTTP when the server answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("remote: invalid config: %s", msg)
}

// ErrConnection remote connection error
func ErrConnection(err error) error {
	return fmt.Errorf("remote: connection failed: %w", err)
}

// ErrRequest wraps a failure building or performing a request
func ErrRequest(method, endpoint string, err error) error {
	return fmt.Errorf("remote: %s %s failed: %w", method, endpoint, err)
}

// ErrDelivery wraps a failed kafka delivery report
func ErrDelivery(topic string, err error) error {
	return fmt.Errorf("remote: delivery to topic %s failed: %w", topic, err)
}
