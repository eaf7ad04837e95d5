// Package routine runs background work with panic recovery.
//
// Sync passes, connectivity watchers and sink flush loops all run through a
// Runner so that a panicking remote sender or storage backend is logged
// instead of taking down the host application.
package routine

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/dailyyoga/offlinekit/logger"
	"go.uber.org/zap"
)

// Runner provides safe goroutine execution with panic recovery
type Runner interface {
	// Go executes a named function in a new goroutine with panic recovery.
	// The name is only used for logging and may be empty.
	Go(name string, fn func())

	// GoContext executes a named function with context in a new goroutine
	GoContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

type defaultRunner struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: logger.Named(log, "routine")}
}

func (r *defaultRunner) Go(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn()
	}()
}

func (r *defaultRunner) GoContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// Go is a convenience function that executes a named function in a new
// goroutine with panic recovery, without tracking it
func Go(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverWithLog(log, name)
		fn()
	}()
}

// Safe calls fn on the current goroutine and converts a panic into an error.
func Safe(log logger.Logger, name string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic(log, name, rec)
			err = ErrPanic(rec)
		}
	}()
	return fn()
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
	}
}

func logPanic(log logger.Logger, name string, rec any) {
	if log == nil {
		return
	}
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	log.Error("goroutine panicked", fields...)
}
