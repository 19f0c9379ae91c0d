// Package reqcache provides a content-addressed response cache with TTL
// expiry and a bounded store. Exactly-once execution for concurrent misses
// is the deduplicator's job, not the cache's.
package reqcache

import (
	"sync"
	"time"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 1000
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache memoizes responses keyed by content hash. Stale entries are deleted
// lazily on read rather than swept eagerly. When the store is full, Set
// evicts one arbitrary existing entry, a documented simplification over
// strict LRU.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]entry

	now func() time.Time
}

// New creates a cache. Non-positive ttl or maxSize fall back to defaults.
func New(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key. A stale entry counts as a miss and
// is deleted on the spot.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. Inserting a new key into a full store evicts
// one arbitrary existing entry first.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		for victim := range c.entries {
			delete(c.entries, victim)
			break
		}
	}
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// GetOrSet returns the cached value for key, invoking fetch and storing its
// result on a miss. Check-then-fetch-then-store is not atomic: concurrent
// misses for the same key can both invoke fetch. Fetch errors are returned
// without storing anything.
func (c *Cache) GetOrSet(key string, fetch func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
