// Package idempotency provides a best-effort replay cache for workflow
// requests. Replaying a logically identical request within the TTL window
// returns the exact first response instead of recomputing it or
// re-triggering side effects.
//
// The guarantee is best effort, not strict: two near-simultaneous requests
// bearing the same key can both miss the cache and both compute, in which
// case the last Put wins. Callers wanting exactly-once semantics need an
// atomic compare-and-swap against a shared store, which this package does
// not promise.
package idempotency

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultTTL is how long a stored response stays replayable.
const DefaultTTL = 24 * time.Hour

// sweepThreshold is the table size above which expired entries are swept
// during a Put, bounding memory without a background timer.
const sweepThreshold = 10000

// Store is the cache surface handlers depend on. Both the in-memory Cache
// and the Redis-backed RedisStore satisfy it.
type Store interface {
	// Get returns the stored response for key, or false if no valid
	// entry exists. Expired entries are never returned.
	Get(key string) (json.RawMessage, bool)
	// Put stores response under key with a fixed TTL from now. Callers
	// must Get first; Put after a hit clobbers the winning response.
	Put(key string, response json.RawMessage)
}

type entry struct {
	response  json.RawMessage
	expiresAt time.Time
}

// Cache is an in-memory idempotency cache with TTL expiry.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*entry
	now     func() time.Time
}

// NewCache creates a cache whose entries expire ttl after creation.
// A non-positive ttl falls back to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWithClock(ttl, time.Now)
}

// NewCacheWithClock creates a cache with an injected clock for tests.
func NewCacheWithClock(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     now,
	}
}

// Get returns the stored response for key if one exists and has not
// expired. An expired entry is treated as absent and evicted on access.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return e.response, true
}

// Put stores response under key, expiring ttl from now. An existing entry
// for the key is overwritten; last put wins.
func (c *Cache) Put(key string, response json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > sweepThreshold {
		c.sweep()
	}

	c.entries[key] = &entry{
		response:  response,
		expiresAt: c.now().Add(c.ttl),
	}
}

// sweep removes every expired entry. Callers must hold c.mu.
func (c *Cache) sweep() {
	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of stored entries, including expired entries
// that have not been swept yet.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
