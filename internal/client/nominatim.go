package client

import (
	"context"

	"github.com/innsight-labs/innsight/pkg/nominatim"
)

// NominatimGeocoder adapts a nominatim.Client to the Geocoder interface.
type NominatimGeocoder struct {
	client nominatim.Client
}

var _ Geocoder = (*NominatimGeocoder)(nil)

// NewNominatimGeocoder wraps the given client.
func NewNominatimGeocoder(c nominatim.Client) *NominatimGeocoder {
	return &NominatimGeocoder{client: c}
}

func (g *NominatimGeocoder) Resolve(ctx context.Context, query string) ([]Place, error) {
	matches, err := g.client.GeocodeDetailed(ctx, query)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(matches))
	for _, m := range matches {
		places = append(places, Place{
			Lat:         m.Lat,
			Lon:         m.Lon,
			DisplayName: m.DisplayName,
			Name:        m.Name,
			Type:        m.Type,
			Address:     m.Address,
		})
	}
	return places, nil
}
