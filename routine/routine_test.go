package routine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_Go(t *testing.T) {
	runner := New(zap.NewNop())

	var executed atomic.Bool
	runner.Go("exec", func() {
		executed.Store(true)
	})
	runner.Wait()

	if !executed.Load() {
		t.Error("expected function to be executed")
	}
}

func TestRunner_Go_WithPanic(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	runner := New(zap.New(core))

	var afterPanic atomic.Bool
	runner.Go("sync-pass", func() {
		panic("sender exploded")
	})
	runner.Go("", func() {
		afterPanic.Store(true)
	})
	runner.Wait()

	if !afterPanic.Load() {
		t.Error("expected goroutine after panic to execute")
	}
	entries := recorded.FilterMessage("goroutine panicked").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 panic log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["routine"]; got != "sync-pass" {
		t.Errorf("expected routine field 'sync-pass', got %v", got)
	}
}

func TestRunner_GoContext(t *testing.T) {
	runner := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	var stopped atomic.Bool
	runner.GoContext(ctx, "watcher", func(ctx context.Context) {
		<-ctx.Done()
		stopped.Store(true)
	})
	cancel()
	runner.Wait()

	if !stopped.Load() {
		t.Error("expected goroutine to observe cancellation")
	}
}

func TestRunner_Wait_MultipleGoroutines(t *testing.T) {
	runner := New(zap.NewNop())

	var counter atomic.Int32
	for i := 0; i < 50; i++ {
		runner.Go("", func() {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		})
	}
	runner.Wait()

	if counter.Load() != 50 {
		t.Errorf("expected 50 executions, got %d", counter.Load())
	}
}

func TestGo_Standalone_WithPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go(zap.NewNop(), "standalone", func() {
		defer wg.Done()
		panic("standalone panic")
	})
	wg.Wait()
}

func TestSafe(t *testing.T) {
	log := zap.NewNop()
	if err := Safe(log, "ok", func() error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	want := errors.New("boom")
	if err := Safe(log, "err", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	err := Safe(log, "panic", func() error { panic("test error") })
	if err == nil || err.Error() != "routine: panic recovered: test error" {
		t.Errorf("unexpected error: %v", err)
	}
}
