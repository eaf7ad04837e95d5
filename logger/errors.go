package logger

import (
	"fmt"
	"strings"
)

// ErrBuildLogger wraps a zap build failure, e.g. an unwritable output path
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: build: %w", err)
}

// ErrInvalidLevel represents an invalid log level error
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("logger: invalid level %q: %w", level, err)
}

// ErrInvalidEncoding represents an invalid encoding error
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("logger: invalid encoding %q, must be one of: %s", encoding, strings.Join(validEncodings, ", "))
}
