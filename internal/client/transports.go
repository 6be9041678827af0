// Package client defines the outbound transport interfaces used by the
// recommendation pipeline and wraps them with retry, circuit-breaker, and
// stale-fallback behavior.
package client

import (
	"context"

	"github.com/innsight-labs/innsight/internal/model"
)

// Place is a resolved geocoding match.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Name        string
	Type        string
	Address     map[string]string
}

// Geocoder resolves a free-form place query to candidate places, best
// match first.
type Geocoder interface {
	Resolve(ctx context.Context, query string) ([]Place, error)
}

// IsochroneProvider fetches travel-time polygons around a point, one group
// per interval, ascending (innermost first).
type IsochroneProvider interface {
	Fetch(ctx context.Context, lat, lon float64, intervalsSeconds []int, profile string) (model.IsochroneSet, error)
}

// CandidateSource searches accommodation candidates around a point.
type CandidateSource interface {
	Search(ctx context.Context, lat, lon float64) ([]model.Candidate, error)
}
