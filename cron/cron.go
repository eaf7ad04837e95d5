// Package cron schedules recurring background tasks such as the periodic
// drain of the pending-sync queue.
//
// Specs use the six-field cron format (with seconds) or descriptors such as
// "@every 5m". Every task is wrapped with recovery and logging middleware.
package cron

import (
	"context"

	"github.com/dailyyoga/offlinekit/logger"
)

// Task is a named unit of recurring work
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task. ctx is cancelled when the scheduler closes.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
func TaskFunc(name string, fn func(ctx context.Context) error) Task {
	return &wrappedTask{name: name, exec: fn}
}

// Cron manages recurring tasks
type Cron interface {
	// Start begins the scheduler
	Start()
	// Close stops the scheduler and waits for running tasks to complete
	Close()
	// AddTask schedules task under name according to spec
	AddTask(name, spec string, task Task) error
	// Remove unschedules the task registered under name
	Remove(name string)
}

// NewCron creates a new scheduler with the given logger and extra middlewares
// Built-in middlewares: recoveryMiddleware, loggingMiddleware
func NewCron(log logger.Logger, mws ...Middleware) Cron {
	log = logger.Named(log, "cron")
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newCronManager(log, append(defaultMws, mws...)...)
}
