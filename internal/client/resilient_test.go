package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/internal/resilience"
	"github.com/innsight-labs/innsight/pkg/nominatim"
	"github.com/innsight-labs/innsight/pkg/overpass"
)

type stubGeocoder struct {
	calls  int
	fail   int // fail the first N calls
	err    error
	places []Place
}

func (s *stubGeocoder) Resolve(_ context.Context, _ string) ([]Place, error) {
	s.calls++
	if s.calls <= s.fail {
		return nil, s.err
	}
	return s.places, nil
}

type stubIsochrones struct {
	calls int
	err   error
	set   model.IsochroneSet
}

func (s *stubIsochrones) Fetch(_ context.Context, _, _ float64, _ []int, _ string) (model.IsochroneSet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

type stubCandidates struct {
	calls int
	err   error
	cands []model.Candidate
}

func (s *stubCandidates) Search(_ context.Context, _, _ float64) ([]model.Candidate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cands, nil
}

var (
	_ Geocoder          = (*stubGeocoder)(nil)
	_ IsochroneProvider = (*stubIsochrones)(nil)
	_ CandidateSource   = (*stubCandidates)(nil)
)

func fastConfig() Config {
	return Config{
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker:     resilience.CircuitBreakerConfig{FailureThreshold: 100, ResetTimeout: time.Minute},
		FallbackTTL: time.Hour,
	}
}

func TestResolve_RetriesTransientThenSucceeds(t *testing.T) {
	g := &stubGeocoder{
		fail:   2,
		err:    &nominatim.APIError{StatusCode: 503, Body: "overloaded"},
		places: []Place{{Lat: 26.2, Lon: 127.7, Name: "Okinawa"}},
	}
	r := NewResilient(g, &stubIsochrones{}, &stubCandidates{}, fastConfig())

	places, err := r.Resolve(context.Background(), "沖繩")
	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, 3, g.calls)
}

func TestResolve_PermanentErrorNotRetried(t *testing.T) {
	apiErr := &nominatim.APIError{StatusCode: 400, Body: "bad query"}
	g := &stubGeocoder{fail: 10, err: apiErr}
	r := NewResilient(g, &stubIsochrones{}, &stubCandidates{}, fastConfig())

	_, err := r.Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	var got *nominatim.APIError
	assert.True(t, errors.As(err, &got))
	assert.Equal(t, 1, g.calls)
}

func TestResolve_ExhaustedBecomesUnavailable(t *testing.T) {
	g := &stubGeocoder{fail: 10, err: &nominatim.APIError{StatusCode: 502, Body: "bad gateway"}}
	r := NewResilient(g, &stubIsochrones{}, &stubCandidates{}, fastConfig())

	_, err := r.Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, g.calls)
}

func TestResolve_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.Breaker.FailureThreshold = 2
	g := &stubGeocoder{fail: 1000, err: &nominatim.APIError{StatusCode: 503, Body: "down"}}
	r := NewResilient(g, &stubIsochrones{}, &stubCandidates{}, cfg)

	_, _ = r.Resolve(context.Background(), "x")
	_, _ = r.Resolve(context.Background(), "x")

	callsBefore := g.calls
	_, err := r.Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, callsBefore, g.calls, "open circuit must not reach the transport")
	assert.Equal(t, resilience.CircuitOpen, r.BreakerStates()[serviceGeocoder])
}

func testIsochroneSet() model.IsochroneSet {
	return model.IsochroneSet{{Seconds: 600, Polygons: nil}}
}

func TestFetch_CachesAndServesFresh(t *testing.T) {
	iso := &stubIsochrones{set: testIsochroneSet()}
	r := NewResilient(&stubGeocoder{}, iso, &stubCandidates{}, fastConfig())

	for i := 0; i < 3; i++ {
		set, err := r.Fetch(context.Background(), 26.2, 127.7, []int{600}, "driving-car")
		require.NoError(t, err)
		assert.Len(t, set, 1)
	}
	assert.Equal(t, 1, iso.calls, "fresh cache must short-circuit the transport")
}

func TestFetch_StaleFallbackOnFailure(t *testing.T) {
	cfg := fastConfig()
	cfg.FallbackTTL = time.Nanosecond // everything is stale immediately
	iso := &stubIsochrones{set: testIsochroneSet()}
	r := NewResilient(&stubGeocoder{}, iso, &stubCandidates{}, cfg)

	_, err := r.Fetch(context.Background(), 26.2, 127.7, []int{600}, "driving-car")
	require.NoError(t, err)

	// Transport starts failing: the stale set is served instead.
	iso.err = &overpass.APIError{StatusCode: 503, Body: "down"}
	set, err := r.Fetch(context.Background(), 26.2, 127.7, []int{600}, "driving-car")
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.Equal(t, uint64(1), r.FallbackStats().StaleHits)
}

func TestFetch_UnavailableWhenNothingCached(t *testing.T) {
	iso := &stubIsochrones{err: &overpass.APIError{StatusCode: 504, Body: "timeout"}}
	r := NewResilient(&stubGeocoder{}, iso, &stubCandidates{}, fastConfig())

	_, err := r.Fetch(context.Background(), 26.2, 127.7, []int{600}, "driving-car")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, iso.calls, "retries happen before giving up")
}

func TestFetch_DistinctSignaturesCachedSeparately(t *testing.T) {
	iso := &stubIsochrones{set: testIsochroneSet()}
	r := NewResilient(&stubGeocoder{}, iso, &stubCandidates{}, fastConfig())

	_, err := r.Fetch(context.Background(), 26.2, 127.7, []int{600}, "driving-car")
	require.NoError(t, err)
	_, err = r.Fetch(context.Background(), 26.2, 127.7, []int{600, 1200}, "driving-car")
	require.NoError(t, err)
	assert.Equal(t, 2, iso.calls)
}

func TestSearch_PassesThroughCandidates(t *testing.T) {
	cand := &stubCandidates{cands: []model.Candidate{{ID: 1, Name: "Hotel A"}}}
	r := NewResilient(&stubGeocoder{}, &stubIsochrones{}, cand, fastConfig())

	got, err := r.Search(context.Background(), 26.2, 127.7)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Hotel A", got[0].Name)
}

func TestSearch_DecodeErrorRetriedThenUnavailable(t *testing.T) {
	cand := &stubCandidates{err: &overpass.DecodeError{Err: errors.New("truncated body")}}
	r := NewResilient(&stubGeocoder{}, &stubIsochrones{}, cand, fastConfig())

	_, err := r.Search(context.Background(), 26.2, 127.7)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 3, cand.calls, "malformed bodies are retried")
}
