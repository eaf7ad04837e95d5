package lms

import "fmt"

// Predefined errors
var (
	// ErrNilManager is returned when no offline manager is given
	ErrNilManager = fmt.Errorf("lms: offline manager is required")
	// ErrNilAPI is returned when no API is given
	ErrNilAPI = fmt.Errorf("lms: api is required")
)

// ErrInvalidConfig returns an error for an invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("lms: invalid config: %s", msg)
}

// ErrInvalidProgress returns an error for a progress outside [0, 100]
func ErrInvalidProgress(lessonID string, p Percent) error {
	return fmt.Errorf("lms: invalid progress %s for lesson %s (must be within 0..100)", p.String(), lessonID)
}
