package offline

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CacheEntry is a cached payload with its freshness window
type CacheEntry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"stored_at"`
	TTL      time.Duration   `json:"ttl"`
}

// Fresh reports whether the entry is still valid at now
func (e CacheEntry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) <= e.TTL
}

// SetCache stores data under key for ttl; ttl <= 0 means Config.DefaultTTL.
// data is JSON encoded; json.RawMessage is stored as is.
func (m *Manager) SetCache(key string, data any, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return ErrEncode(key, err)
	}
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	m.mu.Lock()
	m.cache[key] = CacheEntry{Key: key, Data: raw, StoredAt: m.now(), TTL: ttl}
	m.mu.Unlock()

	m.persistCache(context.Background())
	return nil
}

// GetCache returns the payload cached under key if it is still fresh.
// An expired entry is evicted and reported as a miss.
func (m *Manager) GetCache(key string) (json.RawMessage, bool) {
	m.mu.Lock()
	entry, ok := m.cache[key]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	if entry.Fresh(m.now()) {
		m.mu.Unlock()
		return entry.Data, true
	}
	delete(m.cache, key)
	m.mu.Unlock()

	m.logger.Debug("cache entry expired", zap.String("key", key))
	m.persistCache(context.Background())
	return nil, false
}

// Get decodes the fresh payload cached under key into T
func Get[T any](m *Manager, key string) (T, bool, error) {
	var v T
	raw, ok := m.GetCache(key)
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, ErrDecode(key, err)
	}
	return v, true, nil
}

// ClearCache removes every key matching pattern, or everything when pattern
// is empty. The pattern is a regular expression matched anywhere in the key,
// so a plain prefix such as "course_" works too. An invalid expression is
// matched as a literal substring.
func (m *Manager) ClearCache(pattern string) {
	match := keyMatcher(pattern)

	m.mu.Lock()
	removed := 0
	for key := range m.cache {
		if match(key) {
			delete(m.cache, key)
			removed++
		}
	}
	m.mu.Unlock()

	m.logger.Debug("cache cleared", zap.String("pattern", pattern), zap.Int("removed", removed))
	m.persistCache(context.Background())
}

func keyMatcher(pattern string) func(string) bool {
	if pattern == "" {
		return func(string) bool { return true }
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return func(key string) bool { return strings.Contains(key, pattern) }
	}
	return re.MatchString
}

// lookup returns the entry for key without evicting it
func (m *Manager) lookup(key string) (entry CacheEntry, fresh, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok = m.cache[key]
	if !ok {
		return CacheEntry{}, false, false
	}
	return entry, entry.Fresh(m.now()), true
}

// GetCachedOrFetch is a read-through cache over fetch.
//
// A fresh entry is returned without calling fetch. Otherwise fetch is called
// when online and its result cached for ttl. When fetch fails, an expired
// entry still held in memory is served instead of the error.
//
// Offline reads may return stale data: fetch is never called while offline,
// and an expired entry that has not been evicted yet is returned with a nil
// error and a "serving stale cache" warning. Only when no entry is held at
// all is ErrOfflineNoCache returned. Callers that must not show expired data
// check GetCache first, which evicts on expiry.
func GetCachedOrFetch[T any](ctx context.Context, m *Manager, key string, fetch func(ctx context.Context) (T, error), ttl time.Duration) (T, error) {
	var zero T

	entry, fresh, ok := m.lookup(key)
	if ok && fresh {
		var v T
		err := json.Unmarshal(entry.Data, &v)
		if err == nil {
			return v, nil
		}
		m.logger.Warn("undecodable cache entry, refetching", zap.String("key", key), zap.Error(err))
	}

	if m.IsOffline() {
		if v, ok := serveStale[T](m, key); ok {
			return v, nil
		}
		return zero, errNoCache(key)
	}

	v, err := fetch(ctx)
	if err != nil {
		if stale, ok := serveStale[T](m, key); ok {
			m.logger.Warn("fetch failed", zap.String("key", key), zap.Error(err))
			return stale, nil
		}
		return zero, err
	}
	if err := m.SetCache(key, v, ttl); err != nil {
		m.logger.Warn("failed to cache fetched value", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func serveStale[T any](m *Manager, key string) (T, bool) {
	var v T
	entry, _, ok := m.lookup(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(entry.Data, &v); err != nil {
		return v, false
	}
	m.logger.Warn("serving stale cache",
		zap.String("key", key),
		zap.Time("stored_at", entry.StoredAt),
		zap.Duration("ttl", entry.TTL),
	)
	return v, true
}
