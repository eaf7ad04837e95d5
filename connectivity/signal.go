// Package connectivity tracks whether the remote API is reachable.
//
// A Signal holds the current online flag and publishes every transition on
// an unbounded channel, so publishers such as a Prober or the host's network
// callbacks never block on a slow consumer. A Prober derives the flag by
// polling a health endpoint.
package connectivity

import (
	"context"
	"sync"

	"github.com/smallnest/chanx"
)

// Signal is an online/offline flag with change notifications
type Signal struct {
	ctx     context.Context
	mu      sync.Mutex
	online  bool
	changes *chanx.UnboundedChan[bool]
	closed  bool
}

// NewSignal creates a signal with the given initial state. The change stream
// is released when ctx is done or Close is called. Once ctx is done Set keeps
// tracking the state but no longer publishes transitions.
func NewSignal(ctx context.Context, online bool) *Signal {
	return &Signal{
		ctx:     ctx,
		online:  online,
		changes: chanx.NewUnboundedChan[bool](ctx, 8),
	}
}

// Online reports the current state
func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set records the state and publishes it when it differs from the previous
// one. It reports whether a transition happened.
func (s *Signal) Set(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.online == online {
		return false
	}
	s.online = online
	if s.ctx.Err() != nil {
		return true
	}
	// nothing drains In once ctx is done
	select {
	case s.changes.In <- online:
	case <-s.ctx.Done():
	}
	return true
}

// Changes streams every transition, oldest first
func (s *Signal) Changes() <-chan bool {
	return s.changes.Out
}

// Close stops publishing; Changes is closed once drained
func (s *Signal) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changes.In)
}
