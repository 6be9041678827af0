package client

import (
	"context"

	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/pkg/ors"
)

// ORSIsochrones adapts an ors.Client to the IsochroneProvider interface.
type ORSIsochrones struct {
	client ors.Client
}

var _ IsochroneProvider = (*ORSIsochrones)(nil)

// NewORSIsochrones wraps the given client.
func NewORSIsochrones(c ors.Client) *ORSIsochrones {
	return &ORSIsochrones{client: c}
}

func (p *ORSIsochrones) Fetch(ctx context.Context, lat, lon float64, intervalsSeconds []int, profile string) (model.IsochroneSet, error) {
	groups, err := p.client.Isochrones(ctx, ors.IsochroneRequest{
		Profile:       profile,
		Lon:           lon,
		Lat:           lat,
		RangesSeconds: intervalsSeconds,
	})
	if err != nil {
		return nil, err
	}

	set := make(model.IsochroneSet, 0, len(groups))
	for _, g := range groups {
		set = append(set, model.IsochroneGroup{Seconds: g.Seconds, Polygons: g.Polygons})
	}
	return set, nil
}
