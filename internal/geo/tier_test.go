package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/innsight-labs/innsight/internal/model"
)

// square returns an axis-aligned square polygon centered on (cx, cy).
func square(cx, cy, half float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{cx - half, cy - half},
		{cx + half, cy - half},
		{cx + half, cy + half},
		{cx - half, cy + half},
		{cx - half, cy - half},
	}})
}

// nestedSet builds three nested squares around the origin: travel times
// ascend, so the smallest square is the first group.
func nestedSet() model.IsochroneSet {
	return model.IsochroneSet{
		{Seconds: 900, Polygons: []*geom.Polygon{square(0, 0, 1)}},
		{Seconds: 1800, Polygons: []*geom.Polygon{square(0, 0, 2)}},
		{Seconds: 3600, Polygons: []*geom.Polygon{square(0, 0, 3)}},
	}
}

func candidateAt(id int64, lat, lon float64) model.Candidate {
	return model.Candidate{ID: id, Lat: lat, Lon: lon, Name: "c"}
}

func TestAssignTiers_NestedContainment(t *testing.T) {
	candidates := []model.Candidate{
		candidateAt(1, 0.5, 0.5),  // innermost
		candidateAt(2, 1.5, 1.5),  // second ring only
		candidateAt(3, 2.5, 2.5),  // outermost only
		candidateAt(4, 10, 10),    // outside everything
	}

	tiered, err := AssignTiers(candidates, nestedSet(), DefaultBuffer)
	require.NoError(t, err)
	require.Len(t, tiered, 4)

	assert.Equal(t, 3, tiered[0].Tier)
	assert.Equal(t, 2, tiered[1].Tier)
	assert.Equal(t, 1, tiered[2].Tier)
	assert.Equal(t, 0, tiered[3].Tier)
}

func TestAssignTiers_EmptySetAllTierZero(t *testing.T) {
	candidates := []model.Candidate{candidateAt(1, 0, 0), candidateAt(2, 5, 5)}

	tiered, err := AssignTiers(candidates, nil, DefaultBuffer)
	require.NoError(t, err)
	for _, tc := range tiered {
		assert.Equal(t, 0, tc.Tier)
	}
}

func TestAssignTiers_BoundaryPointWithinBuffer(t *testing.T) {
	set := model.IsochroneSet{{Seconds: 600, Polygons: []*geom.Polygon{square(0, 0, 1)}}}

	// Just outside the edge, but closer than the buffer distance.
	just := candidateAt(1, 0, 1+5e-6)
	tiered, err := AssignTiers([]model.Candidate{just}, set, DefaultBuffer)
	require.NoError(t, err)
	assert.Equal(t, 1, tiered[0].Tier)

	// Clearly outside the buffer.
	far := candidateAt(2, 0, 1.1)
	tiered, err = AssignTiers([]model.Candidate{far}, set, DefaultBuffer)
	require.NoError(t, err)
	assert.Equal(t, 0, tiered[0].Tier)
}

func TestAssignTiers_HoleExcluded(t *testing.T) {
	donut := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{-3, -3}, {3, -3}, {3, 3}, {-3, 3}, {-3, -3}},
		{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}},
	})
	set := model.IsochroneSet{{Seconds: 600, Polygons: []*geom.Polygon{donut}}}

	inHole := candidateAt(1, 0, 0)
	inRing := candidateAt(2, 2, 2)
	tiered, err := AssignTiers([]model.Candidate{inHole, inRing}, set, DefaultBuffer)
	require.NoError(t, err)
	assert.Equal(t, 0, tiered[0].Tier)
	assert.Equal(t, 1, tiered[1].Tier)
}

func TestAssignTiers_MultiPolygonGroup(t *testing.T) {
	set := model.IsochroneSet{{
		Seconds:  600,
		Polygons: []*geom.Polygon{square(0, 0, 1), square(10, 10, 1)},
	}}

	tiered, err := AssignTiers([]model.Candidate{candidateAt(1, 10, 10)}, set, DefaultBuffer)
	require.NoError(t, err)
	assert.Equal(t, 1, tiered[0].Tier)
}

func TestAssignTiers_DuplicateCoordinatesShareTier(t *testing.T) {
	candidates := []model.Candidate{
		candidateAt(1, 0.5, 0.5),
		candidateAt(2, 0.5, 0.5),
		candidateAt(3, 0.50000000001, 0.5), // rounds to the same key
	}

	tiered, err := AssignTiers(candidates, nestedSet(), DefaultBuffer)
	require.NoError(t, err)
	for _, tc := range tiered {
		assert.Equal(t, 3, tc.Tier)
	}
}

func TestAssignTiers_MissingCoordinatesError(t *testing.T) {
	bad := model.Candidate{ID: 7, Lat: math.NaN(), Lon: 127.6, Name: "broken"}
	_, err := AssignTiers([]model.Candidate{bad}, nestedSet(), DefaultBuffer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinates")
}

func TestAssignTiers_MalformedPolygonError(t *testing.T) {
	set := model.IsochroneSet{{Seconds: 600, Polygons: []*geom.Polygon{geom.NewPolygon(geom.XY)}}}
	_, err := AssignTiers([]model.Candidate{candidateAt(1, 0, 0)}, set, DefaultBuffer)
	require.Error(t, err)

	empty := model.IsochroneSet{{Seconds: 600, Polygons: nil}}
	_, err = AssignTiers([]model.Candidate{candidateAt(1, 0, 0)}, empty, DefaultBuffer)
	require.Error(t, err)
}

func TestAssignTiers_NoCandidates(t *testing.T) {
	tiered, err := AssignTiers(nil, nestedSet(), DefaultBuffer)
	require.NoError(t, err)
	assert.Empty(t, tiered)
}
