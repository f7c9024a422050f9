package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), "cache.json"))
}

func TestCachePutGetTTL(t *testing.T) {
	c := newCache(t)

	if err := c.Put("items", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	raw, ok := c.Get("items", time.Minute)
	if !ok {
		t.Fatal("fresh entry not returned")
	}
	if string(raw) != `["a","b"]` {
		t.Errorf("got %s", raw)
	}
	if _, ok := c.Get("items", -time.Second); ok {
		t.Error("stale entry returned")
	}
	if _, ok := c.Get("missing", time.Minute); ok {
		t.Error("missing key returned")
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first := NewCache(path)
	if err := first.Put("members", map[string]int{"count": 3}); err != nil {
		t.Fatal(err)
	}

	second := NewCache(path)
	raw, ok := second.Get("members", time.Minute)
	if !ok {
		t.Fatal("entry lost across instances")
	}
	if string(raw) != `{"count":3}` {
		t.Errorf("got %s", raw)
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := newCache(t)

	for i := 0; i < maxCacheEntries; i++ {
		if err := c.Put(fmt.Sprintf("key-%d", i), i); err != nil {
			t.Fatal(err)
		}
	}
	// key-0 has the oldest StoredAt and must be the one evicted.
	c.entries["key-0"] = cacheEntry{Value: c.entries["key-0"].Value, StoredAt: time.Now().Add(-time.Hour)}

	if err := c.Put("overflow", "x"); err != nil {
		t.Fatal(err)
	}
	if got := c.Len(); got != maxCacheEntries {
		t.Errorf("len = %d, want %d", got, maxCacheEntries)
	}
	if _, ok := c.Get("key-0", time.Hour*2); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("overflow", time.Minute); !ok {
		t.Error("new entry missing after eviction")
	}
}

func TestMonitorDetectsTransitions(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.EndpointHealth {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, newCache(t), logger.Nop())

	var transitions []bool
	m.AddListener(func(online bool) { transitions = append(transitions, online) })

	if !m.Check(context.Background()) {
		t.Fatal("healthy server reported offline")
	}
	healthy.Store(false)
	if m.Check(context.Background()) {
		t.Fatal("unhealthy server reported online")
	}
	healthy.Store(true)
	if !m.Check(context.Background()) {
		t.Fatal("recovered server reported offline")
	}

	want := []bool{true, false, true}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", transitions, want)
			break
		}
	}
}

func TestQueueFlushedOnReconnect(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, newCache(t), logger.Nop())
	m.Check(context.Background()) // goes offline

	var ran []string
	m.Enqueue(QueuedOp{Name: "first", Run: func(ctx context.Context) error {
		ran = append(ran, "first")
		return nil
	}})
	m.Enqueue(QueuedOp{Name: "second", Run: func(ctx context.Context) error {
		ran = append(ran, "second")
		return nil
	}})
	if m.QueueLen() != 2 {
		t.Fatalf("queue = %d", m.QueueLen())
	}

	healthy.Store(true)
	m.Check(context.Background())

	if m.QueueLen() != 0 {
		t.Errorf("queue not drained: %d", m.QueueLen())
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Errorf("ran = %v", ran)
	}
}

func TestFailedReplayIsRequeued(t *testing.T) {
	m := NewMonitor("http://unused", newCache(t), logger.Nop())

	attempts := 0
	m.Enqueue(QueuedOp{Name: "flaky", Run: func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("still failing")
		}
		return nil
	}})

	m.Flush(context.Background())
	if m.QueueLen() != 1 {
		t.Fatalf("failed op not requeued, queue = %d", m.QueueLen())
	}
	m.Flush(context.Background())
	if m.QueueLen() != 0 {
		t.Errorf("queue = %d after successful replay", m.QueueLen())
	}
	if attempts != 2 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestWithFallbackCachesAndServes(t *testing.T) {
	m := NewMonitor("http://unused", newCache(t), logger.Nop())

	calls := 0
	fetch := func(ctx context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return []string{"a", "b"}, nil
		}
		return nil, fmt.Errorf("dial tcp: %w", api.ErrNetwork)
	}

	got, err := WithFallback(context.Background(), m, "items", time.Minute, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}

	// Second call fails with a network error; the cached value is served.
	got, err = WithFallback(context.Background(), m, "items", time.Minute, fetch)
	if err != nil {
		t.Fatalf("cached fallback failed: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("got %v", got)
	}
}

func TestWithFallbackWithoutCache(t *testing.T) {
	m := NewMonitor("http://unused", newCache(t), logger.Nop())

	_, err := WithFallback(context.Background(), m, "empty", time.Minute, func(ctx context.Context) (int, error) {
		return 0, fmt.Errorf("dial tcp: %w", api.ErrNetwork)
	})
	if !errors.Is(err, ErrNoCachedData) {
		t.Fatalf("got %v", err)
	}
}

func TestWithFallbackDoesNotMaskOtherErrors(t *testing.T) {
	m := NewMonitor("http://unused", newCache(t), logger.Nop())

	wantErr := errors.New("validation rejected")
	_, err := WithFallback(context.Background(), m, "items", time.Minute, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v", err)
	}
	if errors.Is(err, ErrNoCachedData) {
		t.Error("non-network failure fell back to cache")
	}
}
