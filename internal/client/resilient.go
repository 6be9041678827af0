package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/internal/resilience"
)

// Service names used for circuit breakers and log fields.
const (
	serviceGeocoder   = "geocoder"
	serviceIsochrones = "isochrones"
	serviceCandidates = "poi-search"
)

// Config controls the resilience applied around the raw transports.
type Config struct {
	Retry        resilience.RetryConfig
	Breaker      resilience.CircuitBreakerConfig
	FallbackSize int
	FallbackTTL  time.Duration
}

// Resilient wraps the three transports with retry everywhere, circuit
// breakers on geocoding and POI search, and stale-fallback caching on
// isochrone fetches. Stale coordinates are unsafe to act on, so geocoding
// and POI search fail fast instead of falling back.
type Resilient struct {
	geocoder   Geocoder
	isochrones IsochroneProvider
	candidates CandidateSource

	retry    resilience.RetryConfig
	breakers *resilience.ServiceBreakers
	isoCache *resilience.FallbackCache[model.IsochroneSet]
}

var (
	_ Geocoder          = (*Resilient)(nil)
	_ IsochroneProvider = (*Resilient)(nil)
	_ CandidateSource   = (*Resilient)(nil)
)

// NewResilient wraps the given transports.
func NewResilient(g Geocoder, iso IsochroneProvider, cand CandidateSource, cfg Config) *Resilient {
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = resilience.DefaultRetryConfig()
	}
	retry.ShouldRetry = shouldRetry

	breaker := cfg.Breaker
	breaker.ShouldTrip = shouldRetry

	return &Resilient{
		geocoder:   g,
		isochrones: iso,
		candidates: cand,
		retry:      retry,
		breakers:   resilience.NewServiceBreakers(breaker),
		isoCache:   resilience.NewFallbackCache[model.IsochroneSet](cfg.FallbackSize, cfg.FallbackTTL),
	}
}

// Resolve geocodes query with retry behind the geocoder circuit breaker.
func (r *Resilient) Resolve(ctx context.Context, query string) ([]Place, error) {
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger(serviceGeocoder, "resolve")

	places, err := resilience.ExecuteVal(ctx, r.breakers.Get(serviceGeocoder), func(ctx context.Context) ([]Place, error) {
		return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]Place, error) {
			return r.geocoder.Resolve(ctx, query)
		})
	})
	if err != nil {
		return nil, r.classify(serviceGeocoder, err)
	}
	return places, nil
}

// Fetch retrieves isochrones with retry and stale-fallback caching: a
// fresh cached set short-circuits the transport, and on failure any cached
// set for the same signature is served instead of the error.
func (r *Resilient) Fetch(ctx context.Context, lat, lon float64, intervalsSeconds []int, profile string) (model.IsochroneSet, error) {
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger(serviceIsochrones, "fetch")
	cfg.OnExhausted = func(err error) error {
		return eris.Wrap(err, "client: upstream temporary failure")
	}

	key := isochroneKey(lat, lon, intervalsSeconds, profile)
	set, err := r.isoCache.Call(ctx, key, func(ctx context.Context) (model.IsochroneSet, error) {
		return resilience.DoVal(ctx, cfg, func(ctx context.Context) (model.IsochroneSet, error) {
			return r.isochrones.Fetch(ctx, lat, lon, intervalsSeconds, profile)
		})
	})
	if err != nil {
		return nil, &UnavailableError{Service: serviceIsochrones,
			Err: eris.Wrap(err, "client: isochrone request failed and no cached result available")}
	}
	return set, nil
}

// Search finds candidates with retry behind the POI-search circuit breaker.
func (r *Resilient) Search(ctx context.Context, lat, lon float64) ([]model.Candidate, error) {
	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger(serviceCandidates, "search")

	cands, err := resilience.ExecuteVal(ctx, r.breakers.Get(serviceCandidates), func(ctx context.Context) ([]model.Candidate, error) {
		return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.Candidate, error) {
			return r.candidates.Search(ctx, lat, lon)
		})
	})
	if err != nil {
		return nil, r.classify(serviceCandidates, err)
	}
	return cands, nil
}

// BreakerStates reports circuit breaker states for observability.
func (r *Resilient) BreakerStates() map[string]resilience.CircuitState {
	return r.breakers.States()
}

// FallbackStats reports isochrone fallback-cache counters.
func (r *Resilient) FallbackStats() resilience.FallbackStats {
	return r.isoCache.Stats()
}

// classify converts exhausted transient failures and open circuits into
// UnavailableError; permanent API errors pass through untouched.
func (r *Resilient) classify(service string, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) || shouldRetry(err) {
		return &UnavailableError{Service: service, Err: err}
	}
	return err
}

// isochroneKey builds the fallback-cache signature for one fetch.
func isochroneKey(lat, lon float64, intervalsSeconds []int, profile string) string {
	return fmt.Sprintf("isochrones|%s|%.6f,%.6f|%v", profile, lat, lon, intervalsSeconds)
}
