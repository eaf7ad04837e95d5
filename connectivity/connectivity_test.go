package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
		return false
	}
}

func TestSignal_PublishesTransitionsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSignal(ctx, false)

	if s.Set(false) {
		t.Error("setting the same state should not be a transition")
	}
	if !s.Set(true) {
		t.Error("offline -> online should be a transition")
	}
	s.Set(false)
	s.Set(true)

	for i, want := range []bool{true, false, true} {
		if got := receive(t, s.Changes()); got != want {
			t.Errorf("change %d = %v, want %v", i, got, want)
		}
	}
	if !s.Online() {
		t.Error("expected online")
	}
}

func TestSignal_Close(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSignal(ctx, true)
	s.Close()
	s.Close()

	if s.Set(false) {
		t.Error("closed signal should ignore Set")
	}
	select {
	case _, ok := <-s.Changes():
		if ok {
			t.Error("expected closed change stream")
		}
	case <-time.After(time.Second):
		t.Fatal("change stream not closed")
	}
}

func TestSignal_SetAfterContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSignal(ctx, true)
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 40; i++ {
			want := i%2 == 1
			if !s.Set(want) {
				t.Errorf("set %d: expected a transition", i)
			}
			if s.Online() != want {
				t.Errorf("set %d: Online() = %v, want %v", i, !want, want)
			}
		}
		s.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Set or Online blocked after ctx was cancelled")
	}
}

func TestProber(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSignal(ctx, false)

	p, err := NewProber(zap.NewNop(), &ProberConfig{URL: server.URL + "/health", FailureThreshold: 2}, s)
	if err != nil {
		t.Fatalf("NewProber failed: %v", err)
	}

	p.ProbeOnce(ctx)
	if !s.Online() {
		t.Fatal("expected online after a healthy probe")
	}

	healthy.Store(false)
	p.ProbeOnce(ctx)
	if !s.Online() {
		t.Error("a single failure below the threshold should not go offline")
	}
	p.ProbeOnce(ctx)
	if s.Online() {
		t.Error("expected offline after reaching the failure threshold")
	}

	healthy.Store(true)
	p.ProbeOnce(ctx)
	if !s.Online() {
		t.Error("expected online after recovery")
	}
}

func TestNewProber_Invalid(t *testing.T) {
	ctx := context.Background()
	if _, err := NewProber(zap.NewNop(), &ProberConfig{}, NewSignal(ctx, true)); err == nil {
		t.Error("expected error without url")
	}
	if _, err := NewProber(zap.NewNop(), &ProberConfig{URL: "http://x"}, nil); err != ErrNilSignal {
		t.Errorf("expected ErrNilSignal, got %v", err)
	}
}
