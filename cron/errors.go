package cron

import "fmt"

var (
	// ErrNilTask is returned when scheduling a nil task
	ErrNilTask = fmt.Errorf("cron: task is nil")

	// ErrCronClosed is returned when attempting to operate on a closed cron manager
	ErrCronClosed = fmt.Errorf("cron: cron manager is closed")
)

// ErrInvalidSpec is returned when a spec cannot be parsed
func ErrInvalidSpec(name, spec string, err error) error {
	return fmt.Errorf("cron: invalid spec %q for task %s: %w", spec, name, err)
}

// ErrDuplicateTask is returned when a name is scheduled twice
func ErrDuplicateTask(name string) error {
	return fmt.Errorf("cron: task %s already scheduled", name)
}
