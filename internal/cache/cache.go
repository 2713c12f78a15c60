// Package cache provides a small generic in-memory TTL cache with a
// background janitor that evicts expired entries.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache keyed by K.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]

	janitorInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// New constructs a Cache and starts its janitor. The janitor wakes every
// janitorInterval to drop expired entries; pass zero to disable it.
func New[K comparable, V any](janitorInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:         make(map[K]entry[V]),
		janitorInterval: janitorInterval,
		stop:            make(chan struct{}),
	}

	if janitorInterval > 0 {
		go c.janitor()
	}

	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetStale returns the value for key even after its TTL elapsed, as long
// as it was stored no longer than maxAge ago. The second return reports
// whether a usable value was found; the third reports whether that value
// is past its TTL.
func (c *Cache[K, V]) GetStale(_ context.Context, key K, maxAge time.Duration) (V, bool, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false, false
	}

	now := time.Now()
	if now.Sub(e.storedAt) > maxAge {
		return zero, false, false
	}
	return e.value, true, now.After(e.expiresAt)
}

// Set stores value under key with the given TTL.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	now := time.Now()
	c.mu.Lock()
	c.entries[key] = entry[V]{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	c.mu.Unlock()
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor. The cache remains usable after Close.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Cache[K, V]) janitor() {
	ticker := time.NewTicker(c.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[K, V]) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
