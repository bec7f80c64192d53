// Package cache provides a TTL'd in-memory key→value store for expensive
// idempotent reads (price, gas, balance lookups).
//
// Entries expire individually: a read past the TTL removes the entry on the
// spot, and a periodic sweep removes entries that are written but never read
// again, bounding worst-case memory. The cache holds arbitrary values;
// callers use the generic Value helper for typed access.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is the entry lifetime when construction does not set one.
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 60 * time.Second
)

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds construction parameters for a Cache.
type Config struct {
	// TTL is the cache-wide entry lifetime. Zero selects DefaultTTL.
	TTL time.Duration

	// Clock provides time operations for testing. Default: SystemClock.
	Clock Clock

	// Logger receives sweep statistics. Default: slog.Default().
	Logger *slog.Logger
}

// entry is a stored value with its freshness window.
type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// expired reports whether the entry's lifetime has elapsed at now.
// An entry is valid strictly while now − storedAt < ttl.
func (e entry) expired(now time.Time) bool {
	return !now.Before(e.storedAt.Add(e.ttl))
}

// Cache is a thread-safe TTL'd key→value store.
//
// Reads take the read lock and upgrade to the write lock only when they
// find an expired entry to delete, so concurrent readers of live entries
// never serialize.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl    time.Duration
	clock  Clock
	logger *slog.Logger
}

// New creates a Cache with the given configuration.
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Cache{
		entries: make(map[string]entry),
		ttl:     cfg.TTL,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// Get returns the stored value while it is still fresh. An expired entry
// is deleted and reported absent, even if no sweep has run yet.
func (c *Cache) Get(key string) (any, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		cacheMisses.Inc()
		return nil, false
	}

	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// overwritten the entry with a fresh value in between.
		if current, ok := c.entries[key]; ok && current.expired(now) {
			delete(c.entries, key)
			cacheEvictions.WithLabelValues("expired_read").Inc()
			cacheEntries.Set(float64(len(c.entries)))
		}
		c.mu.Unlock()
		cacheMisses.Inc()
		return nil, false
	}

	cacheHits.Inc()
	return e.value, true
}

// Set stores the value with the cache-wide TTL, overwriting any existing
// entry. Overwrite is the only invalidation short of expiry.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores the value with a per-entry TTL. A non-positive ttl falls
// back to the cache-wide one.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.clock.Now(), ttl: ttl}
	cacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()
}

// Len returns the number of entries currently stored, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush removes every entry. Used by tests and operator tooling.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	cacheEntries.Set(0)
	c.mu.Unlock()
}

// StartSweep runs the periodic sweep until the context is cancelled.
// It blocks, so call it in its own goroutine. The sweep removes every
// expired entry regardless of whether it was ever read.
func (c *Cache) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("cache sweep started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", c.ttl))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache sweep stopped")
			return

		case <-ticker.C:
			examined, removed := c.sweep()
			c.logger.Debug("cache sweep completed",
				slog.Int("examined", examined),
				slog.Int("removed", removed))
		}
	}
}

// sweep removes expired entries and reports how many entries were
// examined and removed.
func (c *Cache) sweep() (examined, removed int) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	examined = len(c.entries)
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		cacheEvictions.WithLabelValues("sweep").Add(float64(removed))
		cacheEntries.Set(float64(len(c.entries)))
	}

	return examined, removed
}

// Value returns the cached value for key when it is fresh and of type T.
// A stored value of a different dynamic type counts as a miss; the entry
// is left in place for whichever caller stored it.
func Value[T any](c *Cache, key string) (T, bool) {
	var zero T

	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}

	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
