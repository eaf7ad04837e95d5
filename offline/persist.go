package offline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// hydrate restores the cache and the queue. A missing record is empty
// state; unreadable or corrupt records are logged and ignored.
func (m *Manager) hydrate(ctx context.Context) {
	var cache map[string]CacheEntry
	if m.load(ctx, m.cfg.CacheRecordKey, &cache) {
		for key, entry := range cache {
			entry.Key = key
			m.cache[key] = entry
		}
	}

	var queue []PendingOperation
	if m.load(ctx, m.cfg.QueueRecordKey, &queue) {
		m.queue = queue
	}
}

func (m *Manager) load(ctx context.Context, key string, v any) bool {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Error("failed to read record, starting empty", zap.String("record", key), zap.Error(err))
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		m.logger.Error("corrupt record, starting empty", zap.String("record", key), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) persistCache(ctx context.Context) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	raw, err := json.Marshal(m.cache)
	m.mu.Unlock()
	m.write(ctx, m.cfg.CacheRecordKey, raw, err)
}

func (m *Manager) persistQueue(ctx context.Context) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	queue := m.queue
	if queue == nil {
		queue = []PendingOperation{}
	}
	raw, err := json.Marshal(queue)
	m.mu.Unlock()
	m.write(ctx, m.cfg.QueueRecordKey, raw, err)
}

func (m *Manager) write(ctx context.Context, key string, raw []byte, err error) {
	if err != nil {
		m.logger.Error("failed to encode record", zap.String("record", key), zap.Error(err))
		return
	}
	if err := m.store.Set(ctx, key, string(raw)); err != nil {
		m.logger.Error("failed to persist record", zap.String("record", key), zap.Error(err))
	}
}
