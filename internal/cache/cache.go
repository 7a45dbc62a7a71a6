// Package cache provides a small in-process key/value store with per-entry
// TTLs. It backs the forecast result cache and the accuracy score cache.
// Lookups are check-then-compute-then-store: concurrent callers may both
// recompute the same entry, which is safe because stored values are
// idempotent results.
package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the cache when no explicit limit is given.
const DefaultMaxEntries = 4096

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL key/value store. The zero value is not usable; use New.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int

	done chan struct{}
	once sync.Once
}

// New creates a cache bounded to maxEntries (0 means DefaultMaxEntries) and
// starts a background janitor that evicts expired entries at sweepInterval
// (0 disables the janitor; expired entries are then dropped lazily on Get).
func New(maxEntries int, sweepInterval time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.janitor(sweepInterval)
	}
	return c
}

// Get returns the value for key, or false when absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another Set may have refreshed it.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL, replacing any prior entry.
// When the cache is full, the entry closest to expiry is evicted first.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked()
	}
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// evictSoonestLocked removes the entry with the earliest expiry.
// Caller must hold the write lock.
func (c *Cache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
