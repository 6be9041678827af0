package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/pkg/overpass"
)

// OverpassCandidates adapts an overpass.Client to the CandidateSource
// interface, searching accommodation POIs in the administrative area around
// a point and its neighboring areas.
type OverpassCandidates struct {
	client overpass.Client
}

var _ CandidateSource = (*OverpassCandidates)(nil)

// NewOverpassCandidates wraps the given client.
func NewOverpassCandidates(c overpass.Client) *OverpassCandidates {
	return &OverpassCandidates{client: c}
}

func (s *OverpassCandidates) Search(ctx context.Context, lat, lon float64) ([]model.Candidate, error) {
	elements, err := s.client.Query(ctx, accommodationQuery(lat, lon))
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(elements))
	for _, el := range elements {
		elLat, elLon, ok := el.Location()
		if !ok {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Unknown"
		}
		candidates = append(candidates, model.Candidate{
			ID:         el.ID,
			SourceType: el.Type,
			Lat:        elLat,
			Lon:        elLon,
			Name:       name,
			Tourism:    el.Tags["tourism"],
			Rating:     extractRating(el.Tags),
			Amenities:  extractAmenities(el.Tags),
		})
	}
	return candidates, nil
}

// accommodationQuery finds lodging in the admin_level=7 area containing the
// point and every adjacent admin_level=7 area, so stays just across an
// administrative border still show up.
func accommodationQuery(lat, lon float64) string {
	return fmt.Sprintf(`
[out:json];
is_in(%[1]f,%[2]f)->.areas;
area.areas[boundary="administrative"][admin_level=7]->.mainArea;
rel(pivot.mainArea)->.mainRel;
way(r.mainRel)->.borderWays;
rel(bw.borderWays)[boundary="administrative"][admin_level=7]->.neighborRels;
rel.neighborRels->.tmpRels;
(.tmpRels; map_to_area;)->.neighborAreas;
nwr(area.neighborAreas)[tourism~"hotel|guest_house|hostel|motel|apartment|camp_site|caravan_site"];
out center;
`, lat, lon)
}

// ratingTagKeys are tried in order when extracting a numeric rating.
var ratingTagKeys = []string{"rating", "stars", "quality"}

// extractRating pulls a numeric rating from OSM tags, nil when no tag
// parses as a number.
func extractRating(tags map[string]string) *float64 {
	for _, key := range ratingTagKeys {
		raw, ok := tags[key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}

// amenityRule describes how one amenity value is derived from OSM tags.
type amenityRule struct {
	// directKeys yield the tag value as-is.
	directKeys []string
	// conditionalKeys map a specific tag value to a derived value.
	conditionalKeys []conditionalKey
	// indicatorKeys yield "yes" when the tag is affirmative.
	indicatorKeys []string
}

type conditionalKey struct {
	key    string
	equals string
	yields string
}

var amenityRules = map[string]amenityRule{
	model.AmenityParking: {
		directKeys:      []string{"parking"},
		conditionalKeys: []conditionalKey{{key: "parking:fee", equals: "no", yields: "yes"}},
	},
	model.AmenityWheelchair: {
		directKeys: []string{"wheelchair"},
	},
	model.AmenityKids: {
		indicatorKeys: []string{"family_friendly", "kids", "children"},
	},
	model.AmenityPet: {
		indicatorKeys: []string{"pets", "pets_allowed", "dogs"},
	},
}

// extractAmenities derives the tri-state amenity tags used by filtering
// and scoring.
func extractAmenities(tags map[string]string) model.Amenities {
	var out model.Amenities
	for _, amenity := range model.AmenityKeys {
		rule := amenityRules[amenity]

		var value model.AmenityValue
		for _, key := range rule.directKeys {
			if v, ok := tags[key]; ok {
				value = model.AmenityValue(v)
				break
			}
		}
		if value == model.AmenityUnknown {
			for _, ck := range rule.conditionalKeys {
				if tags[ck.key] == ck.equals {
					value = model.AmenityValue(ck.yields)
					break
				}
			}
		}
		if value == model.AmenityUnknown {
			for _, key := range rule.indicatorKeys {
				if v := tags[key]; v == "yes" || v == "true" {
					value = model.AmenityYes
					break
				}
			}
		}
		out.Set(amenity, value)
	}
	return out
}
