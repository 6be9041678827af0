package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsight-labs/innsight/internal/model"
)

func newTestCache(cfg Config, now *time.Time) *ResultCache {
	c := New(cfg)
	c.nowFunc = func() time.Time { return *now }
	return c
}

func sampleResult(n int) *model.RecommendationResult {
	r := model.EmptyResult(model.MainPOI{Name: "美ら海水族館"})
	for i := 0; i < n; i++ {
		r.Top = append(r.Top, model.ScoredCandidate{
			TieredCandidate: model.TieredCandidate{
				Candidate: model.Candidate{ID: int64(i), Name: fmt.Sprintf("hotel-%d", i)},
				Tier:      3,
			},
			Score: float64(100 - i),
		})
		r.Stats.Add(3)
	}
	return r
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("poi", "place", []string{"parking", "wheelchair"}, map[string]float64{"tier": 4, "rating": 2}, "driving-car")
	b := Key("poi", "place", []string{"wheelchair", "parking"}, map[string]float64{"rating": 2, "tier": 4}, "driving-car")
	assert.Equal(t, a, b, "filter order and weight-map order must not change the key")

	c := Key("poi", "place", []string{"parking"}, nil, "driving-car")
	assert.NotEqual(t, a, c)

	d := Key("poi", "place", []string{"parking", "wheelchair"}, map[string]float64{"tier": 4, "rating": 2}, "cycling-regular")
	assert.NotEqual(t, a, d, "profile is part of the signature")
}

func TestGetPut_RoundTrip(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{}, &now)
	key := Key("poi", "", nil, nil, "driving-car")

	c.Put(key, sampleResult(10))

	got, ok := c.Get(key, 5)
	require.True(t, ok)
	require.Len(t, got.Top, 5)
	assert.Equal(t, "hotel-0", got.Top[0].Name)
	assert.Equal(t, 10, got.Stats.Tier3)
}

func TestGet_MutationDoesNotCorruptCache(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{}, &now)
	key := "k"

	original := sampleResult(3)
	c.Put(key, original)

	// Mutating both the stored-from value and a returned copy must not
	// affect later reads.
	original.Top[0].Name = "mutated"
	got, ok := c.Get(key, 0)
	require.True(t, ok)
	got.Top[1].Name = "also mutated"
	got.MainPOI.Address = map[string]string{"x": "y"}

	fresh, ok := c.Get(key, 0)
	require.True(t, ok)
	assert.Equal(t, "hotel-0", fresh.Top[0].Name)
	assert.Equal(t, "hotel-1", fresh.Top[1].Name)
}

func TestGet_ExpiredEntryIsMissAndRemoved(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{TTL: time.Hour}, &now)

	c.Put("k", sampleResult(1))
	now = now.Add(2 * time.Hour)

	_, ok := c.Get("k", 0)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCleanup_ThrottledToInterval(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{TTL: time.Hour, Capacity: 2, CleanupInterval: 10 * time.Minute}, &now)

	// First Put sets the cleanup clock; Puts within the interval do not
	// trim even when over capacity.
	c.Put("a", sampleResult(1))
	now = now.Add(time.Minute)
	c.Put("b", sampleResult(1))
	c.Put("c", sampleResult(1))
	c.Put("d", sampleResult(1))
	assert.Equal(t, 4, c.Stats().Size, "cleanup must not run within the interval")

	// Once the interval passes, the next Put trims oldest-first down to
	// capacity.
	now = now.Add(10 * time.Minute)
	c.Put("e", sampleResult(1))
	assert.Equal(t, 2, c.Stats().Size)

	_, ok := c.Get("e", 0)
	assert.True(t, ok, "newest entry survives")
	_, ok = c.Get("a", 0)
	assert.False(t, ok, "oldest entry evicted")
}

func TestCleanup_PurgesExpiredBeforeCapacity(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{TTL: 30 * time.Minute, Capacity: 10, CleanupInterval: time.Minute}, &now)

	c.Put("old1", sampleResult(1))
	c.Put("old2", sampleResult(1))
	now = now.Add(time.Hour)
	c.Put("fresh", sampleResult(1))

	assert.Equal(t, 1, c.Stats().Size)
	_, ok := c.Get("fresh", 0)
	assert.True(t, ok)
}

func TestStats_CountsHitsAndMisses(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{}, &now)

	c.Put("k", sampleResult(1))
	c.Get("k", 0)
	c.Get("k", 0)
	c.Get("missing", 0)

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
}

func TestPut_NilResultIgnored(t *testing.T) {
	now := time.Now()
	c := newTestCache(Config{}, &now)
	c.Put("k", nil)
	_, ok := c.Get("k", 0)
	assert.False(t, ok)
}
