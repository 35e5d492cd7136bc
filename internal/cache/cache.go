// Package cache memoizes fetched page content for a bounded freshness window.
package cache

import (
	"sync"
	"time"

	"github.com/JakeFAU/jobsift/internal/metrics"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 2 * time.Hour

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type entry struct {
	content   []byte
	fetchedAt time.Time
}

// Cache is a concurrency-safe TTL map keyed by normalized URL. Stale entries
// are evicted lazily when they are looked up.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   Clock
}

// New builds a Cache. A ttl <= 0 disables caching: every Get misses.
func New(ttl time.Duration, clock Clock) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns a copy of the content stored for key when it is younger than the TTL.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		metrics.ObserveCacheLookup("miss")
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		metrics.ObserveCacheLookup("miss")
		return nil, false
	}
	if c.clock.Now().Sub(e.fetchedAt) > c.ttl {
		c.evict(key, e.fetchedAt)
		metrics.ObserveCacheLookup("stale")
		return nil, false
	}
	metrics.ObserveCacheLookup("hit")
	return append([]byte(nil), e.content...), true
}

// evict removes key unless a concurrent Put already refreshed it.
func (c *Cache) evict(key string, seen time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur.fetchedAt.Equal(seen) {
		delete(c.entries, key)
	}
}

// Put stores a copy of content under key, stamped with the current time.
func (c *Cache) Put(key string, content []byte) {
	if c.ttl <= 0 {
		return
	}
	stored := append([]byte(nil), content...)
	now := c.clock.Now()
	c.mu.Lock()
	c.entries[key] = entry{content: stored, fetchedAt: now}
	c.mu.Unlock()
}

// Len reports the number of entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
