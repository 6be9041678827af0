package model

import "github.com/twpayne/go-geom/encoding/geojson"

// DefaultProfile is the routing profile used for isochrone requests.
const DefaultProfile = "driving-car"

// TierStats counts candidates per tier, tier 0 through tier 3.
type TierStats struct {
	Tier0 int `json:"tier_0"`
	Tier1 int `json:"tier_1"`
	Tier2 int `json:"tier_2"`
	Tier3 int `json:"tier_3"`
}

// Add increments the counter for the given tier. Tiers outside 0..3 are
// clamped into range.
func (s *TierStats) Add(tier int) {
	switch {
	case tier <= 0:
		s.Tier0++
	case tier == 1:
		s.Tier1++
	case tier == 2:
		s.Tier2++
	default:
		s.Tier3++
	}
}

// MainPOI describes the resolved search anchor.
type MainPOI struct {
	Name        string            `json:"name"`
	Location    string            `json:"location,omitempty"`
	Lat         *float64          `json:"lat"`
	Lon         *float64          `json:"lon"`
	DisplayName string            `json:"display_name,omitempty"`
	Type        string            `json:"type,omitempty"`
	Address     map[string]string `json:"address,omitempty"`
}

// Intervals describes the travel-time intervals behind a result.
type Intervals struct {
	Values  []int  `json:"values"`
	Unit    string `json:"unit"`
	Profile string `json:"profile"`
}

// RecommendationResult is the final output of the pipeline for one query.
type RecommendationResult struct {
	Stats             TierStats           `json:"stats"`
	Top               []ScoredCandidate   `json:"top"`
	MainPOI           MainPOI             `json:"main_poi"`
	IsochroneGeometry []*geojson.Geometry `json:"isochrone_geometry"`
	Intervals         Intervals           `json:"intervals"`
}

// EmptyResult returns the zero-count result served for empty or degraded
// queries.
func EmptyResult(poi MainPOI) *RecommendationResult {
	if poi.Name == "" {
		poi.Name = UnknownPOIName
	}
	return &RecommendationResult{
		Top:               []ScoredCandidate{},
		MainPOI:           poi,
		IsochroneGeometry: []*geojson.Geometry{},
		Intervals: Intervals{
			Values:  []int{},
			Unit:    "minutes",
			Profile: DefaultProfile,
		},
	}
}

// UnknownPOIName is the placeholder anchor name when no POI resolves.
const UnknownPOIName = "未知景點"

// Clone returns a deep copy with Top truncated to at most limit entries.
// A non-positive limit keeps the full list. The copy shares no mutable
// state with the receiver, so callers may modify it freely.
func (r *RecommendationResult) Clone(limit int) *RecommendationResult {
	if r == nil {
		return nil
	}

	n := len(r.Top)
	if limit > 0 && limit < n {
		n = limit
	}
	top := make([]ScoredCandidate, n)
	copy(top, r.Top[:n])

	poi := r.MainPOI
	if poi.Address != nil {
		addr := make(map[string]string, len(poi.Address))
		for k, v := range poi.Address {
			addr[k] = v
		}
		poi.Address = addr
	}

	geoms := make([]*geojson.Geometry, len(r.IsochroneGeometry))
	copy(geoms, r.IsochroneGeometry)

	values := make([]int, len(r.Intervals.Values))
	copy(values, r.Intervals.Values)

	return &RecommendationResult{
		Stats:             r.Stats,
		Top:               top,
		MainPOI:           poi,
		IsochroneGeometry: geoms,
		Intervals: Intervals{
			Values:  values,
			Unit:    r.Intervals.Unit,
			Profile: r.Intervals.Profile,
		},
	}
}
