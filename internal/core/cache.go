package core

import (
	"strings"
	"sync"
	"time"
)

// Cache is a process-wide memoized-read store with manual invalidation.
// Keys are request-shaped strings ("submissions:contact_submissions?resolved=false").
// It is owned by the composition root and injected into the handlers; it
// is never accessed as ambient global state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// NewCache creates a cache whose entries expire after ttl. A ttl of zero
// means entries live until invalidated.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl {
		c.Invalidate(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value under key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateMatching removes every key the predicate accepts.
func (c *Cache) InvalidateMatching(pred func(key string) bool) {
	c.mu.Lock()
	for key := range c.entries {
		if pred(key) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// InvalidateTable removes all cached reads touching a table, including
// the dashboard counts that aggregate across tables.
func (c *Cache) InvalidateTable(table string) {
	c.InvalidateMatching(func(key string) bool {
		return strings.Contains(key, table) || strings.HasPrefix(key, "counts:")
	})
}

// Len returns the number of live entries. Used by tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
