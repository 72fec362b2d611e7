// Package cache provides a small TTL cache for query results and
// decoded coverage reports.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe TTL map with a bounded size.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache holding entries for ttl, capped at maxSize.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 4096
	}
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores a value in the cache.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// DeletePrefix removes every entry whose key starts with prefix and
// returns how many were dropped.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted
}

// evictOldest removes expired entries, then trims further if needed.
func (c *Cache) evictOldest() {
	now := c.now()
	var toDelete []string

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			toDelete = append(toDelete, key)
		}
	}
	for _, key := range toDelete {
		delete(c.entries, key)
	}

	// Still over capacity: drop an arbitrary 10%.
	if len(c.entries) >= c.maxSize {
		count := 0
		target := c.maxSize / 10
		if target < 1 {
			target = 1
		}
		for key := range c.entries {
			delete(c.entries, key)
			count++
			if count >= target {
				break
			}
		}
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Size returns the current number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
