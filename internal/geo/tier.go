// Package geo classifies candidate locations against nested travel-time
// isochrone polygons.
package geo

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/innsight-labs/innsight/internal/model"
)

// DefaultBuffer is the outward expansion, in degrees, applied to each
// polygon before containment checks so boundary points are not excluded by
// floating-point error.
const DefaultBuffer = 1e-5

// AssignTiers classifies each candidate by the innermost isochrone group
// containing it. Groups are ordered ascending by travel time, so the group
// at index i carries tier len(set)-i and the innermost group the highest
// tier. Candidates outside every polygon get tier 0, as does everything
// when the set is empty. Fails when a candidate is missing coordinates or
// a polygon has no rings.
func AssignTiers(candidates []model.Candidate, set model.IsochroneSet, buffer float64) ([]model.TieredCandidate, error) {
	tiered := make([]model.TieredCandidate, 0, len(candidates))

	for _, c := range candidates {
		if !c.Coordinate().Valid() {
			return nil, eris.Errorf("geo: candidate %d has missing or invalid coordinates", c.ID)
		}
		tiered = append(tiered, model.TieredCandidate{Candidate: c})
	}

	if len(set) == 0 {
		return tiered, nil
	}
	if err := validateSet(set); err != nil {
		return nil, err
	}
	if buffer < 0 {
		buffer = 0
	}

	// Candidates often share coordinates (units in one building); compute
	// containment once per distinct rounded coordinate.
	tierByCoord := make(map[string]int)
	for i := range tiered {
		key := coordKey(tiered[i].Lat, tiered[i].Lon)
		tier, ok := tierByCoord[key]
		if !ok {
			tier = tierFor(geom.Coord{tiered[i].Lon, tiered[i].Lat}, set, buffer)
			tierByCoord[key] = tier
		}
		tiered[i].Tier = tier
	}
	return tiered, nil
}

// tierFor returns the highest tier whose group contains the point. Groups
// ascend by travel time, so the first containing group wins.
func tierFor(point geom.Coord, set model.IsochroneSet, buffer float64) int {
	for i, group := range set {
		for _, poly := range group.Polygons {
			if containsBuffered(poly, point, buffer) {
				return len(set) - i
			}
		}
	}
	return 0
}

// containsBuffered reports whether the polygon, expanded outward by
// buffer, contains the point. Interior means inside the exterior ring and
// outside every hole; otherwise the point still counts when it lies within
// buffer distance of any ring.
func containsBuffered(p *geom.Polygon, point geom.Coord, buffer float64) bool {
	layout := p.Layout()
	exterior := p.LinearRing(0)

	inside := xy.IsPointInRing(layout, point, exterior.FlatCoords())
	if inside {
		for i := 1; i < p.NumLinearRings(); i++ {
			if xy.IsPointInRing(layout, point, p.LinearRing(i).FlatCoords()) {
				inside = false
				break
			}
		}
	}
	if inside {
		return true
	}
	if buffer <= 0 {
		return false
	}

	for i := 0; i < p.NumLinearRings(); i++ {
		if ringDistance(p.LinearRing(i), point) <= buffer {
			return true
		}
	}
	return false
}

// ringDistance is the minimum distance from the point to the ring's
// segments.
func ringDistance(ring *geom.LinearRing, point geom.Coord) float64 {
	coords := ring.Coords()
	min := -1.0
	for i := 1; i < len(coords); i++ {
		d := xy.DistanceFromPointToLine(point, coords[i-1], coords[i])
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}

// validateSet rejects polygon inputs that cannot be tested for containment.
func validateSet(set model.IsochroneSet) error {
	for i, group := range set {
		if len(group.Polygons) == 0 {
			return eris.Errorf("geo: isochrone group %d has no polygons", i)
		}
		for j, poly := range group.Polygons {
			if poly == nil || poly.NumLinearRings() == 0 || poly.LinearRing(0).NumCoords() < 4 {
				return eris.Errorf("geo: isochrone group %d polygon %d is malformed", i, j)
			}
		}
	}
	return nil
}

// coordKey rounds to 8 decimal places (about a millimeter) to merge
// duplicate coordinates.
func coordKey(lat, lon float64) string {
	return fmt.Sprintf("%.8f,%.8f", lat, lon)
}
