package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FallbackCache is a TTL- and capacity-bounded cache that can serve expired
// entries when the live call fails. It backs the isochrone transport, where
// a stale travel-time polygon beats no answer at all.
type FallbackCache[V any] struct {
	mu      sync.Mutex
	entries map[string]fallbackEntry[V]
	maxSize int
	ttl     time.Duration

	hits      uint64
	staleHits uint64
	misses    uint64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

type fallbackEntry[V any] struct {
	value    V
	storedAt time.Time
}

// DefaultFallbackMaxSize bounds the number of cached call signatures.
const DefaultFallbackMaxSize = 128

// DefaultFallbackTTL is how long an entry counts as fresh.
const DefaultFallbackTTL = 24 * time.Hour

// NewFallbackCache creates a fallback cache. Non-positive arguments fall
// back to the defaults.
func NewFallbackCache[V any](maxSize int, ttl time.Duration) *FallbackCache[V] {
	if maxSize <= 0 {
		maxSize = DefaultFallbackMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultFallbackTTL
	}
	return &FallbackCache[V]{
		entries: make(map[string]fallbackEntry[V]),
		maxSize: maxSize,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Call serves key from cache while fresh, otherwise invokes fn. On success
// the result is stored and the cache trimmed. On failure, any cached value
// for key (fresh or expired) is served as a stale fallback with a warning;
// the error propagates only when nothing is cached.
func (c *FallbackCache[V]) Call(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.fresh(key); ok {
		return v, nil
	}

	v, err := fn(ctx)
	if err == nil {
		c.store(key, v)
		return v, nil
	}

	if stale, age, ok := c.any(key); ok {
		zap.L().Warn("live call failed, serving stale cached result",
			zap.String("key", key),
			zap.Duration("age", age),
			zap.Error(err),
		)
		return stale, nil
	}

	var zero V
	return zero, err
}

// fresh returns the cached value for key if it is within the TTL.
func (c *FallbackCache[V]) fresh(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.nowFunc().Sub(e.storedAt) <= c.ttl {
		c.hits++
		return e.value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// any returns the cached value for key regardless of age, with its age.
func (c *FallbackCache[V]) any(key string) (V, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, 0, false
	}
	c.staleHits++
	return e.value, c.nowFunc().Sub(e.storedAt), true
}

// store inserts key and trims the cache: when over capacity it first drops
// every expired entry, then, if still over, the single oldest entry.
func (c *FallbackCache[V]) store(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	c.entries[key] = fallbackEntry[V]{value: v, storedAt: now}

	if len(c.entries) <= c.maxSize {
		return
	}

	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}

	if len(c.entries) > c.maxSize {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Clear drops every cached entry.
func (c *FallbackCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]fallbackEntry[V])
}

// FallbackStats is a snapshot of fallback cache counters.
type FallbackStats struct {
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	StaleHits uint64 `json:"stale_hits"`
	Misses    uint64 `json:"misses"`
}

// Stats returns current cache counters.
func (c *FallbackCache[V]) Stats() FallbackStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FallbackStats{
		Size:      len(c.entries),
		Hits:      c.hits,
		StaleHits: c.staleHits,
		Misses:    c.misses,
	}
}
