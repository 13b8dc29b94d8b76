package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry wraps the cached payload with its expiry.
type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is a TTL cache for supplier payloads. The key space is tiny (one key
// per station batch, one per battery) so the LRU bound is never hit in
// practice; stale entries are evicted lazily on read.
type Cache struct {
	lru *lru.Cache[string, *entry]
	ttl time.Duration

	// Handlers and the poller share one instance, so the counters are
	// atomic.
	hits   atomic.Uint64
	misses atomic.Uint64

	// now is overridable in tests.
	now func() time.Time
}

// New creates a cache with the given TTL and capacity.
func New(ttl time.Duration, size int) (*Cache, error) {
	if size <= 0 {
		size = 1024
	}
	l, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &Cache{
		lru: l,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Get returns the cached payload if present and fresh. Expired entries are
// removed and reported as misses.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if ok {
		if c.now().Before(e.expiresAt) {
			c.hits.Add(1)
			return e.data, true
		}
		c.lru.Remove(key)
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores the payload stamped with the current time plus TTL.
func (c *Cache) Set(key string, data any) {
	c.lru.Add(key, &entry{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Invalidate drops a single key.
func (c *Cache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Stats returns hit/miss counters for the health endpoint.
func (c *Cache) Stats() map[string]uint64 {
	return map[string]uint64{
		"hits":   c.hits.Load(),
		"misses": c.misses.Load(),
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.lru.Purge()
}
