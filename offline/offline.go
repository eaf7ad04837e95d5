// Package offline keeps a client usable without connectivity.
//
// A Manager owns two pieces of state: a TTL cache of remote reads and an
// ordered queue of mutations that still have to reach the remote side. Both
// are persisted to a store.Store on every change and restored on startup, so
// they survive restarts of the host application.
//
// The queue is drained by sync passes. A pass runs when the manager goes
// from offline to online, on a periodic schedule, right after an operation
// is queued while online, or on demand. At most one pass runs at a time.
// Operations are delivered strictly in enqueue order; a failed operation is
// retried on later passes and abandoned after Config.MaxRetries failures.
package offline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/offlinekit/audit"
	"github.com/dailyyoga/offlinekit/connectivity"
	"github.com/dailyyoga/offlinekit/cron"
	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/remote"
	"github.com/dailyyoga/offlinekit/routine"
	"github.com/dailyyoga/offlinekit/store"
	"go.uber.org/zap"
)

const syncTaskName = "sync-pending"

// Options carries the collaborators of a Manager
type Options struct {
	// Logger defaults to a no-op logger
	Logger logger.Logger
	// Store persists the cache and the queue
	// default: in-memory store
	Store store.Store
	// Sender delivers queued operations (required)
	Sender remote.Sender
	// Clock returns the current time
	// default: time.Now
	Clock func() time.Time
	// Signal, when set, drives the online flag. Its state at construction
	// is the initial state.
	Signal *connectivity.Signal
	// Offline is the initial state when no Signal is set
	Offline bool
	// Recorder receives one event per delivery attempt
	// default: audit.Nop
	Recorder audit.Recorder
	// Cron schedules the periodic sync. When nil the manager runs its own
	// scheduler.
	Cron cron.Cron
}

// Manager is the offline cache and pending-sync queue
type Manager struct {
	cfg      *Config
	logger   logger.Logger
	store    store.Store
	sender   remote.Sender
	now      func() time.Time
	signal   *connectivity.Signal
	recorder audit.Recorder
	cron     cron.Cron
	ownCron  bool
	runner   routine.Runner

	mu         sync.Mutex
	cache      map[string]CacheEntry
	queue      []PendingOperation
	generation uint64
	online     bool
	started    bool
	closed     bool
	done       chan struct{}

	// serializes snapshot+write of records so the store never sees an
	// older snapshot after a newer one
	persistMu sync.Mutex

	syncing atomic.Bool
}

// New creates a manager and restores its state from the store.
// Storage failures are logged and leave the manager with empty state.
func New(cfg *Config, opts Options) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Sender == nil {
		return nil, ErrNilSender
	}

	log := logger.Named(opts.Logger, "offline")
	m := &Manager{
		cfg:      cfg,
		logger:   log,
		store:    opts.Store,
		sender:   opts.Sender,
		now:      opts.Clock,
		signal:   opts.Signal,
		recorder: opts.Recorder,
		cron:     opts.Cron,
		runner:   routine.New(log),
		cache:    make(map[string]CacheEntry),
		online:   !opts.Offline,
		done:     make(chan struct{}),
	}
	if m.store == nil {
		m.store = store.NewMemory()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.recorder == nil {
		m.recorder = audit.Nop{}
	}
	if m.signal != nil {
		m.online = m.signal.Online()
	}

	m.hydrate(context.Background())

	log.Info("offline manager initialized",
		zap.Bool("online", m.online),
		zap.Int("cache_entries", len(m.cache)),
		zap.Int("pending_syncs", len(m.queue)),
		zap.Duration("sync_interval", cfg.SyncInterval),
		zap.Int("max_retries", cfg.MaxRetries),
	)
	return m, nil
}

// Start wires the automatic sync triggers: it follows the connectivity
// signal, if any, and schedules the periodic pass. When the manager is
// online with pending operations a pass is launched right away.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	if m.cron == nil {
		m.cron = cron.NewCron(m.logger)
		m.ownCron = true
		m.cron.Start()
	}
	spec := fmt.Sprintf("@every %s", m.cfg.SyncInterval)
	if err := m.cron.AddTask(syncTaskName, spec, cron.TaskFunc(syncTaskName, m.periodicSync)); err != nil {
		return err
	}

	if m.signal != nil {
		m.runner.GoContext(ctx, "connectivity-watch", m.watch)
	}

	if !m.IsOffline() && m.HasPendingSyncs() {
		m.triggerSync("startup")
	}
	return nil
}

// Close stops the sync triggers, waits for running passes and writes both
// records a final time. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	if m.cron != nil {
		m.cron.Remove(syncTaskName)
		if m.ownCron {
			m.cron.Close()
		}
	}
	m.runner.Wait()

	ctx := context.Background()
	m.persistCache(ctx)
	m.persistQueue(ctx)
	m.logger.Info("offline manager closed")
	return nil
}

// ClearAll drops every cache entry and every pending operation and deletes
// both records. A sync pass running concurrently discards its survivors.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	m.cache = make(map[string]CacheEntry)
	dropped := len(m.queue)
	m.queue = nil
	m.generation++
	m.mu.Unlock()

	ctx := context.Background()
	m.persistMu.Lock()
	defer m.persistMu.Unlock()
	for _, key := range []string{m.cfg.CacheRecordKey, m.cfg.QueueRecordKey} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.Error("failed to delete record", zap.String("record", key), zap.Error(err))
		}
	}
	m.logger.Info("offline state cleared", zap.Int("dropped_operations", dropped))
}

// IsOffline reports whether the manager believes the remote side is unreachable
func (m *Manager) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.online
}

// SetOnline records the connectivity state. Going from offline to online
// launches a sync pass.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	m.mu.Unlock()

	if was == online {
		return
	}
	m.logger.Info("connectivity changed", zap.Bool("online", online))
	if online {
		m.triggerSync("reconnect")
	}
}

func (m *Manager) watch(ctx context.Context) {
	m.SetOnline(m.signal.Online())
	for {
		select {
		case online, ok := <-m.signal.Changes():
			if !ok {
				return
			}
			m.SetOnline(online)
		case <-ctx.Done():
			return
		case <-m.done:
			return
		}
	}
}

func (m *Manager) periodicSync(ctx context.Context) error {
	if m.IsOffline() || !m.HasPendingSyncs() {
		return nil
	}
	m.SyncPendingChanges(ctx)
	return nil
}

// triggerSync launches a pass in the background unless the manager is closed
func (m *Manager) triggerSync(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.runner.Go("sync-"+reason, func() {
		result := m.SyncPendingChanges(context.Background())
		if !result.Skipped {
			m.logger.Debug("sync pass finished",
				zap.String("trigger", reason),
				zap.Int("synced", result.Synced),
				zap.Int("retried", result.Retried),
				zap.Int("abandoned", result.Abandoned),
			)
		}
	})
}
