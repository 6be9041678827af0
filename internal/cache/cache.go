// Package cache memoizes finished recommendation results per normalized
// query signature, bounded by TTL and capacity.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/innsight-labs/innsight/internal/model"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultTTL             = time.Hour
	DefaultCapacity        = 256
	DefaultCleanupInterval = time.Minute
)

// Config bounds the cache.
type Config struct {
	// TTL is how long an entry stays valid.
	TTL time.Duration
	// Capacity is the maximum entry count after cleanup.
	Capacity int
	// CleanupInterval throttles eviction work: cleanup runs at most once
	// per interval no matter how often entries are stored.
	CleanupInterval time.Duration
}

// ResultCache is a TTL- and capacity-bounded store of recommendation
// results. Safe for concurrent use.
type ResultCache struct {
	mu          sync.Mutex
	entries     map[string]entry
	cfg         Config
	lastCleanup time.Time

	hits   uint64
	misses uint64

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

type entry struct {
	result   *model.RecommendationResult
	storedAt time.Time
}

// New creates a ResultCache.
func New(cfg Config) *ResultCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	return &ResultCache{
		entries: make(map[string]entry),
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Key builds the deterministic cache signature for one query. Filter order
// and weight-map iteration order do not affect the key.
func Key(poi, place string, filters []string, weights map[string]float64, profile string) string {
	sortedFilters := append([]string(nil), filters...)
	sort.Strings(sortedFilters)

	weightKeys := make([]string, 0, len(weights))
	for k := range weights {
		weightKeys = append(weightKeys, k)
	}
	sort.Strings(weightKeys)

	var b strings.Builder
	fmt.Fprintf(&b, "poi=%s|place=%s|filters=%s|weights=", poi, place, strings.Join(sortedFilters, ","))
	for _, k := range weightKeys {
		fmt.Fprintf(&b, "%s:%g,", k, weights[k])
	}
	fmt.Fprintf(&b, "|profile=%s", profile)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached result with its top list truncated to
// limit. An expired entry counts as a miss and is removed.
func (c *ResultCache) Get(key string, limit int) (*model.RecommendationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.nowFunc().Sub(e.storedAt) > c.cfg.TTL {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.result.Clone(limit), true
}

// Put stores a deep copy of the result, then runs the throttled cleanup.
func (c *ResultCache) Put(key string, result *model.RecommendationResult) {
	if result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	c.entries[key] = entry{result: result.Clone(0), storedAt: now}
	c.maybeCleanup(now)
}

// maybeCleanup purges expired entries and trims to capacity, at most once
// per configured interval. Callers must hold the lock.
func (c *ResultCache) maybeCleanup(now time.Time) {
	if now.Sub(c.lastCleanup) < c.cfg.CleanupInterval {
		return
	}
	c.lastCleanup = now

	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.cfg.TTL {
			delete(c.entries, k)
		}
	}

	for len(c.entries) > c.cfg.Capacity {
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
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Stats returns current cache counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
}
