package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"MarketPulse/internal/domain/models"
)

// entry keeps expired values around (bounded by retention) so the service can
// fall back to stale data when the provider is unavailable.
type entry struct {
	v         any
	createdAt time.Time
	expiresAt time.Time
}

// TTLCache is the in-process market data cache. Readers proceed concurrently
// under the read lock; writes are exclusive. An entry past its expiry is never
// served as fresh.
type TTLCache struct {
	mu sync.RWMutex
	m  map[string]entry

	hits   int64
	misses int64

	retention time.Duration
	ticker    *time.Ticker
	done      chan struct{}

	now func() time.Time
}

// Option configures TTLCache.
type Option func(*TTLCache)

// WithRetention sets how long expired entries stay reachable for stale reads.
func WithRetention(d time.Duration) Option {
	return func(c *TTLCache) { c.retention = d }
}

// WithSweepInterval sets the background purge cadence. Zero disables the sweep;
// lazy invalidation on Get still holds.
func WithSweepInterval(d time.Duration) Option {
	return func(c *TTLCache) {
		if c.ticker != nil {
			c.ticker.Stop()
			c.ticker = nil
		}
		if d > 0 {
			c.ticker = time.NewTicker(d)
		}
	}
}

// WithClock overrides the wall clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// NewTTLCache creates a cache with a 24h stale retention and 5m sweep.
func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		m:         make(map[string]entry),
		retention: 24 * time.Hour,
		ticker:    time.NewTicker(5 * time.Minute),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ticker != nil {
		go c.sweep()
	}
	return c
}

// Get returns (value, found, stale). A fresh entry yields (v, true, false).
// An expired-but-retained entry yields (v, false, true) and counts as a miss.
func (c *TTLCache) Get(key string) (any, bool, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, false
	}
	now := c.now()
	if now.Before(e.expiresAt) {
		atomic.AddInt64(&c.hits, 1)
		return e.v, true, false
	}
	atomic.AddInt64(&c.misses, 1)
	if now.After(e.expiresAt.Add(c.retention)) {
		// past retention, lazy purge
		c.mu.Lock()
		if cur, ok := c.m[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, false
	}
	return e.v, false, true
}

// Peek returns a fresh value without touching the hit/miss counters. Used for
// internal re-checks that should not skew caller-visible stats.
func (c *TTLCache) Peek(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.v, true
}

// GetStale returns the value regardless of freshness, with its stale flag.
// Does not touch the hit/miss counters; used only on the fallback path.
func (c *TTLCache) GetStale(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt.Add(c.retention)) {
		return nil, false
	}
	return e.v, true
}

// ExpiresAt reports the expiry of a present entry.
func (c *TTLCache) ExpiresAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[key]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Set stores v under key with the given ttl.
func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	c.m[key] = entry{v: v, createdAt: now, expiresAt: now.Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes key entirely, including its stale copy.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Stats snapshots hit/miss counters and the entry count (fresh + stale).
func (c *TTLCache) Stats() models.CacheStats {
	c.mu.RLock()
	size := len(c.m)
	c.mu.RUnlock()
	return models.CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Size:   size,
	}
}

func (c *TTLCache) sweep() {
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
			cutoff := c.now()
			c.mu.Lock()
			for k, e := range c.m {
				if cutoff.After(e.expiresAt.Add(c.retention)) {
					delete(c.m, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the background sweep.
func (c *TTLCache) Close() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.done)
}
