package connectivity

import "fmt"

// ErrNilSignal is returned when a prober is created without a signal
var ErrNilSignal = fmt.Errorf("connectivity: signal is nil")

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("connectivity: invalid config: %s", msg)
}

// ErrUnhealthy is returned for a non-2xx health answer
func ErrUnhealthy(status int) error {
	return fmt.Errorf("connectivity: health check returned HTTP %d", status)
}
