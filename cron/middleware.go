package cron

import (
	"context"
	"time"

	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/routine"
	"go.uber.org/zap"
)

// Middleware wraps a Task with additional behavior
type Middleware func(Task) Task

// applyMiddlewares applies mws so that the first one is outermost:
// applyMiddlewares(task, mw1, mw2) == mw1(mw2(task))
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware converts a panic in the task into an error
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &wrappedTask{
			name: next.Name(),
			exec: func(ctx context.Context) error {
				return routine.Safe(log, next.Name(), func() error {
					return next.Run(ctx)
				})
			},
		}
	}
}

// loggingMiddleware logs completion and failures with the run duration
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return &wrappedTask{
			name: next.Name(),
			exec: func(ctx context.Context) error {
				start := time.Now()
				err := next.Run(ctx)
				duration := time.Since(start)
				if err != nil {
					log.Error("task failed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
						zap.Error(err),
					)
					return err
				}
				log.Debug("task completed",
					zap.String("task", next.Name()),
					zap.Duration("duration", duration),
				)
				return nil
			},
		}
	}
}

// wrappedTask is a Task backed by a function
type wrappedTask struct {
	name string
	exec func(ctx context.Context) error
}

func (w *wrappedTask) Name() string {
	return w.name
}

func (w *wrappedTask) Run(ctx context.Context) error {
	return w.exec(ctx)
}
