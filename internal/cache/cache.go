// Package cache provides a small in-memory TTL cache for fee quotes so a
// comparison run does not hit the same bridge API twice for one route.
package cache

import (
	"sync"
	"time"

	"github.com/yourorg/bridge-fee-tracker/internal/model"
)

// entry pairs a cached quote with the time it was stored.
type entry struct {
	quote    model.FeeQuote
	cachedAt time.Time
}

// QuoteCache is a thread-safe cache keyed by protocol and route.
type QuoteCache struct {
	mutex   sync.RWMutex
	ttl     time.Duration
	entries map[string]entry

	// now is replaceable in tests
	now func() time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// key builds the cache key for a protocol and route.
func key(protocol string, req model.QuoteRequest) string {
	return protocol + ":" + req.Key()
}

// Get returns the cached quote for the route if it has not expired. Expired
// entries are dropped on read.
func (c *QuoteCache) Get(protocol string, req model.QuoteRequest) (model.FeeQuote, bool) {
	k := key(protocol, req)

	c.mutex.RLock()
	e, ok := c.entries[k]
	c.mutex.RUnlock()

	if !ok {
		return model.FeeQuote{}, false
	}
	if c.now().Sub(e.cachedAt) >= c.ttl {
		c.mutex.Lock()
		// Re-check under the write lock; another goroutine may have
		// refreshed the entry in the meantime.
		if cur, stillThere := c.entries[k]; stillThere && c.now().Sub(cur.cachedAt) >= c.ttl {
			delete(c.entries, k)
		}
		c.mutex.Unlock()
		return model.FeeQuote{}, false
	}
	return e.quote, true
}

// Set stores a quote for the route, replacing any previous entry.
func (c *QuoteCache) Set(protocol string, req model.QuoteRequest, quote model.FeeQuote) {
	k := key(protocol, req)

	c.mutex.Lock()
	c.entries[k] = entry{quote: quote, cachedAt: c.now()}
	c.mutex.Unlock()
}

// Len returns the number of entries that have not expired.
func (c *QuoteCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	n := 0
	for _, e := range c.entries {
		if c.now().Sub(e.cachedAt) < c.ttl {
			n++
		}
	}
	return n
}

// Purge drops every entry.
func (c *QuoteCache) Purge() {
	c.mutex.Lock()
	c.entries = make(map[string]entry)
	c.mutex.Unlock()
}
