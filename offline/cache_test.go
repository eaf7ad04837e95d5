package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"
)

type course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestCache_TTLExpiry(t *testing.T) {
	env := newTestEnv(t, nil, false)
	if err := env.m.SetCache("dashboard_stats", map[string]int{"courses": 4}, 15*time.Minute); err != nil {
		t.Fatal(err)
	}

	raw, ok := env.m.GetCache("dashboard_stats")
	if !ok || string(raw) != `{"courses":4}` {
		t.Fatalf("expected fresh hit, got %s %v", raw, ok)
	}

	env.clock.Advance(15 * time.Minute)
	if _, ok := env.m.GetCache("dashboard_stats"); !ok {
		t.Fatal("entry is valid while now - stored_at <= ttl")
	}

	env.clock.Advance(time.Millisecond)
	if _, ok := env.m.GetCache("dashboard_stats"); ok {
		t.Fatal("expected miss after ttl")
	}
	if _, ok := env.m.GetCache("dashboard_stats"); ok {
		t.Fatal("expired entry must not come back")
	}

	raw2, _, _ := env.store.Get(context.Background(), "app_cache")
	if raw2 != "{}" {
		t.Errorf("expected eviction to be persisted, got %s", raw2)
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.m.SetCache("k", "v", 0)

	env.clock.Advance(30 * time.Minute)
	if _, ok := env.m.GetCache("k"); !ok {
		t.Fatal("expected hit within default ttl")
	}
	env.clock.Advance(time.Second)
	if _, ok := env.m.GetCache("k"); ok {
		t.Fatal("expected miss after default ttl")
	}
}

func TestCache_SetCacheEncodeError(t *testing.T) {
	env := newTestEnv(t, nil, false)
	if err := env.m.SetCache("k", make(chan int), 0); err == nil {
		t.Error("expected encode error")
	}
}

func TestGet(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.m.SetCache("course_1", course{ID: "1", Title: "Go"}, time.Hour)

	c, ok, err := Get[course](env.m, "course_1")
	if err != nil || !ok || c.Title != "Go" {
		t.Fatalf("Get = %+v %v %v", c, ok, err)
	}
	if _, ok, err := Get[course](env.m, "missing"); ok || err != nil {
		t.Errorf("expected clean miss, got %v %v", ok, err)
	}
	if _, _, err := Get[int](env.m, "course_1"); err == nil {
		t.Error("expected decode error")
	}
}

func cachedKeys(m *Manager) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.cache))
	for k := range m.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestCache_ClearCache(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"prefix", "course_", []string{"dashboard_stats"}},
		{"regex", "^course_1$", []string{"course_2", "dashboard_stats"}},
		{"invalid regex falls back to substring", "stats(", []string{"course_1", "course_2", "dashboard_stats"}},
		{"everything", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, false)
			for _, k := range []string{"course_1", "course_2", "dashboard_stats"} {
				env.m.SetCache(k, k, 0)
			}
			env.m.ClearCache(tt.pattern)

			got := cachedKeys(env.m)
			if len(got) != len(tt.want) {
				t.Fatalf("got keys %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got keys %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCache_ClearCacheLiteralFallback(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.m.SetCache("quiz_attempt_(1", 1, 0)
	env.m.SetCache("quiz_attempt_2", 2, 0)

	env.m.ClearCache("_(1")

	if got := cachedKeys(env.m); len(got) != 1 || got[0] != "quiz_attempt_2" {
		t.Errorf("got keys %v", got)
	}
}

func TestGetCachedOrFetch_FetchesOncePerTTL(t *testing.T) {
	env := newTestEnv(t, nil, false)
	calls := 0
	fetch := func(context.Context) (course, error) {
		calls++
		return course{ID: "1", Title: "Go"}, nil
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		c, err := GetCachedOrFetch(ctx, env.m, "course_1", fetch, time.Hour)
		if err != nil || c.Title != "Go" {
			t.Fatalf("call %d: %+v %v", i, c, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch within ttl, got %d", calls)
	}

	env.clock.Advance(time.Hour + time.Second)
	GetCachedOrFetch(ctx, env.m, "course_1", fetch, time.Hour)
	if calls != 2 {
		t.Errorf("expected refetch after ttl, got %d fetches", calls)
	}
}

func TestGetCachedOrFetch_OfflineNoCache(t *testing.T) {
	env := newTestEnv(t, nil, true)
	fetched := false
	_, err := GetCachedOrFetch(context.Background(), env.m, "user_courses", func(context.Context) ([]course, error) {
		fetched = true
		return nil, nil
	}, 0)

	if !errors.Is(err, ErrOfflineNoCache) {
		t.Fatalf("expected ErrOfflineNoCache, got %v", err)
	}
	if fetched {
		t.Error("fetch must not run while offline")
	}
}

func TestGetCachedOrFetch_OfflineServesFreshAndStale(t *testing.T) {
	env := newTestEnv(t, nil, true)
	env.m.SetCache("course_1", course{Title: "Go"}, time.Minute)
	never := func(context.Context) (course, error) {
		t.Fatal("fetch must not run while offline")
		return course{}, nil
	}

	if c, err := GetCachedOrFetch(context.Background(), env.m, "course_1", never, time.Minute); err != nil || c.Title != "Go" {
		t.Fatalf("fresh hit: %+v %v", c, err)
	}
	env.clock.Advance(2 * time.Minute)
	if c, err := GetCachedOrFetch(context.Background(), env.m, "course_1", never, time.Minute); err != nil || c.Title != "Go" {
		t.Fatalf("stale hit: %+v %v", c, err)
	}
	if env.logs.FilterMessage("serving stale cache").Len() != 1 {
		t.Error("expected only the expired read to warn")
	}
}

func TestGetCachedOrFetch_StaleFallback(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.m.SetCache("course_1", course{Title: "Old"}, time.Minute)
	env.clock.Advance(time.Hour)

	boom := errors.New("503 service unavailable")
	c, err := GetCachedOrFetch(context.Background(), env.m, "course_1", func(context.Context) (course, error) {
		return course{}, boom
	}, time.Minute)

	if err != nil {
		t.Fatalf("expected stale value, got error %v", err)
	}
	if c.Title != "Old" {
		t.Errorf("expected stale title, got %q", c.Title)
	}
	if env.logs.FilterMessage("serving stale cache").Len() != 1 {
		t.Error("expected a stale cache warning")
	}
}

func TestGetCachedOrFetch_FetchErrorWithoutStale(t *testing.T) {
	env := newTestEnv(t, nil, false)
	boom := errors.New("503 service unavailable")
	_, err := GetCachedOrFetch(context.Background(), env.m, "course_1", func(context.Context) (course, error) {
		return course{}, boom
	}, time.Minute)
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestGetCachedOrFetch_StoresRawJSON(t *testing.T) {
	env := newTestEnv(t, nil, false)
	_, err := GetCachedOrFetch(context.Background(), env.m, "dashboard_stats", func(context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"streak":3}`), nil
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := env.m.GetCache("dashboard_stats")
	if !ok || string(raw) != `{"streak":3}` {
		t.Errorf("got %s %v", raw, ok)
	}
}
