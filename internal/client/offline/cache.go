// Package offline keeps the client usable through connectivity loss: a
// bounded response cache with per-read TTLs, a health-check monitor, and a
// queue of writes replayed when the connection comes back.
package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// maxCacheEntries bounds the cache; the oldest entry is evicted first.
const maxCacheEntries = 100

var ErrNoCachedData = errors.New("no cached data available")

type cacheEntry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
}

// Cache is a size-bounded key/value store persisted as a JSON file. Entries
// carry their storage time; freshness is the reader's call via TTL.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]cacheEntry
	loaded  bool
}

func NewCache(path string) *Cache {
	return &Cache{path: path, entries: map[string]cacheEntry{}}
}

// Put stores v under key and persists the cache. When the cache is full the
// entry with the oldest StoredAt is dropped.
func (c *Cache) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return err
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= maxCacheEntries {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{Value: raw, StoredAt: time.Now()}
	return c.persist()
}

// Get returns the raw entry for key if it was stored within ttl.
func (c *Cache) Get(key string, ttl time.Duration) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, false
	}

	e, ok := c.entries[key]
	if !ok || time.Since(e.StoredAt) > ttl {
		return nil, false
	}
	return e.Value, true
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return 0
	}
	return len(c.entries)
}

// Clear drops all entries and removes the backing file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
	c.loaded = true
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// ensureLoaded reads the backing file once; a missing file is an empty cache.
// Must be called with the mutex held.
func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	c.loaded = true
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		// A corrupt cache file is not worth failing over; start fresh.
		c.entries = map[string]cacheEntry{}
	}
	return nil
}

// evictOldest must be called with the mutex held.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.StoredAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.StoredAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// persist must be called with the mutex held.
func (c *Cache) persist() error {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
