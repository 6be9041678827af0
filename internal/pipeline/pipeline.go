// Package pipeline orchestrates the end-to-end recommendation flow: parse,
// geocode, fetch isochrones and candidates, tier, score, rank, cache.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/innsight-labs/innsight/internal/cache"
	"github.com/innsight-labs/innsight/internal/client"
	"github.com/innsight-labs/innsight/internal/geo"
	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/internal/parser"
	"github.com/innsight-labs/innsight/internal/scorer"
)

// DefaultLimit caps the returned candidate count when the request does not
// set one.
const DefaultLimit = 20

// DefaultIntervalsMinutes are the travel-time thresholds used for tiering.
var DefaultIntervalsMinutes = []int{15, 30, 60}

// Request is one recommendation query.
type Request struct {
	// Query is the raw natural-language text.
	Query string
	// Filters are amenity filters supplied alongside the text; they are
	// merged with the filters parsed from the text.
	Filters []string
	// Limit bounds the returned candidates. Zero means DefaultLimit.
	Limit int
	// Weights override the default scoring weights key-by-key.
	Weights map[string]float64
}

// Config tunes the pipeline.
type Config struct {
	// IntervalsMinutes are the isochrone thresholds. Ascending.
	IntervalsMinutes []int
	// Profile is the routing profile for isochrone fetches.
	Profile string
	// Buffer is the polygon buffer for tier containment.
	Buffer float64
}

// Pipeline wires the parser, transports, tier assignment, scoring, and the
// result cache into the single Recommend operation.
type Pipeline struct {
	parser     *parser.Parser
	geocoder   client.Geocoder
	isochrones client.IsochroneProvider
	candidates client.CandidateSource
	engine     *scorer.Engine
	results    *cache.ResultCache

	intervals []int
	profile   string
	buffer    float64
}

// New creates a Pipeline from its collaborators.
func New(p *parser.Parser, g client.Geocoder, iso client.IsochroneProvider, cand client.CandidateSource,
	engine *scorer.Engine, results *cache.ResultCache, cfg Config) *Pipeline {
	intervals := cfg.IntervalsMinutes
	if len(intervals) == 0 {
		intervals = DefaultIntervalsMinutes
	}
	profile := cfg.Profile
	if profile == "" {
		profile = model.DefaultProfile
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = geo.DefaultBuffer
	}
	return &Pipeline{
		parser:     p,
		geocoder:   g,
		isochrones: iso,
		candidates: cand,
		engine:     engine,
		results:    results,
		intervals:  intervals,
		profile:    profile,
		buffer:     buffer,
	}
}

// Recommend runs the full flow for one request. It fails with a parse
// error (parser.IsParseError) for unusable query text and with
// ServiceUnavailableError when an external transport is down; geometry or
// scoring failures degrade to an empty result instead of erroring.
func (p *Pipeline) Recommend(ctx context.Context, req Request) (*model.RecommendationResult, error) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	if req.Query == "" {
		return model.EmptyResult(model.MainPOI{Name: model.UnknownPOIName}), nil
	}

	parseStart := time.Now()
	parsed, err := p.parser.Parse(req.Query)
	if err != nil {
		zap.L().Warn("query parsing failed",
			zap.String("query", req.Query),
			zap.Error(err),
		)
		return nil, err
	}
	parseDur := time.Since(parseStart)

	filters := mergeFilters(parsed.Filters, req.Filters)

	mainPOIName, searchTerm := resolveAnchor(parsed, req.Query)

	key := cache.Key(parsed.POI, parsed.Place, filters, req.Weights, p.profile)
	if cached, ok := p.results.Get(key, limit); ok {
		zap.L().Info("recommendation served from cache",
			zap.Duration("total", time.Since(start)),
			zap.Int("results", len(cached.Top)),
		)
		return cached, nil
	}

	geocodeStart := time.Now()
	places, err := p.geocoder.Resolve(ctx, searchTerm)
	if err != nil {
		return nil, &ServiceUnavailableError{Err: err}
	}
	geocodeDur := time.Since(geocodeStart)

	mainPOI := buildMainPOI(mainPOIName, parsed.Place, places)
	if len(places) == 0 {
		zap.L().Warn("no geocoding match for anchor, returning empty result",
			zap.String("anchor", searchTerm),
		)
		return model.EmptyResult(mainPOI), nil
	}
	anchorLat, anchorLon := places[0].Lat, places[0].Lon

	// Isochrone fetch and candidate search both depend only on the anchor
	// coordinates and run concurrently.
	var (
		isoSet model.IsochroneSet
		cands  []model.Candidate
	)
	searchStart := time.Now()
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var ferr error
		isoSet, ferr = p.isochrones.Fetch(grpCtx, anchorLat, anchorLon, minutesToSeconds(p.intervals), p.profile)
		return ferr
	})
	grp.Go(func() error {
		var serr error
		cands, serr = p.candidates.Search(grpCtx, anchorLat, anchorLon)
		return serr
	})
	if err := grp.Wait(); err != nil {
		return nil, &ServiceUnavailableError{Err: err}
	}
	searchDur := time.Since(searchStart)

	result, err := p.rank(cands, isoSet, filters, req.Weights, limit, mainPOI)
	if err != nil {
		zap.L().Error("ranking failed, degrading to empty result",
			zap.String("query", req.Query),
			zap.Error(err),
		)
		return model.EmptyResult(mainPOI), nil
	}

	p.results.Put(key, result)

	zap.L().Info("recommendation pipeline completed",
		zap.Duration("total", time.Since(start)),
		zap.Duration("parse", parseDur),
		zap.Duration("geocode", geocodeDur),
		zap.Duration("search", searchDur),
		zap.Int("results", len(result.Top)),
	)
	return result.Clone(limit), nil
}

// CacheStats exposes result-cache counters for the operational surface.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.results.Stats()
}

// rank turns raw candidates into the tiered, scored, filtered, ordered
// result.
func (p *Pipeline) rank(cands []model.Candidate, isoSet model.IsochroneSet, filters []string,
	weights map[string]float64, limit int, mainPOI model.MainPOI) (*model.RecommendationResult, error) {

	tiered, err := geo.AssignTiers(cands, isoSet, p.buffer)
	if err != nil {
		return nil, err
	}

	scored, err := p.engine.ScoreAll(tiered, weights)
	if err != nil {
		return nil, err
	}

	scored = filterByAmenities(scored, filters)
	sortByScoreDesc(scored)
	if limit < len(scored) {
		scored = scored[:limit]
	}

	result := model.EmptyResult(mainPOI)
	result.Top = scored
	for _, sc := range scored {
		result.Stats.Add(sc.Tier)
	}
	result.IsochroneGeometry = encodeIsochrones(isoSet)
	if len(isoSet) > 0 {
		result.Intervals = model.Intervals{
			Values:  append([]int(nil), p.intervals...),
			Unit:    "minutes",
			Profile: p.profile,
		}
	}
	return result, nil
}

// resolveAnchor picks the display name and geocoding term for the request:
// a gazetteer POI wins, then an attraction-category mention, then the
// region.
func resolveAnchor(parsed *parser.ParsedQuery, query string) (name, searchTerm string) {
	if parsed.POI != "" {
		return parsed.POI, parsed.POI
	}
	if attraction := parser.ExtractAttraction(query); attraction != "" {
		return attraction, attraction
	}
	return parsed.Place, parsed.Place
}

// mergeFilters combines parsed and request filters, preserving first-seen
// order without duplicates.
func mergeFilters(parsed, requested []string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, f := range append(append([]string(nil), parsed...), requested...) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		merged = append(merged, f)
	}
	return merged
}

// filterByAmenities keeps candidates whose tags affirm every requested
// filter.
func filterByAmenities(scored []model.ScoredCandidate, filters []string) []model.ScoredCandidate {
	if len(filters) == 0 {
		return scored
	}
	kept := scored[:0]
	for _, sc := range scored {
		ok := true
		for _, f := range filters {
			if sc.Amenities.Get(f) != model.AmenityYes {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, sc)
		}
	}
	return kept
}

func sortByScoreDesc(scored []model.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// buildMainPOI assembles the descriptive anchor record from the best
// geocoding match, when there is one.
func buildMainPOI(name, place string, places []client.Place) model.MainPOI {
	poi := model.MainPOI{Name: name, Location: place}
	if len(places) == 0 {
		return poi
	}
	best := places[0]
	lat, lon := best.Lat, best.Lon
	poi.Lat = &lat
	poi.Lon = &lon
	poi.DisplayName = best.DisplayName
	poi.Type = best.Type
	poi.Address = best.Address
	return poi
}

// minutesToSeconds converts tier thresholds for the isochrone transport.
func minutesToSeconds(minutes []int) []int {
	seconds := make([]int, len(minutes))
	for i, m := range minutes {
		seconds[i] = m * 60
	}
	return seconds
}

// encodeIsochrones converts each isochrone group to a GeoJSON geometry:
// single-polygon groups encode as Polygon, the rest as MultiPolygon.
func encodeIsochrones(set model.IsochroneSet) []*geojson.Geometry {
	geometries := make([]*geojson.Geometry, 0, len(set))
	for _, group := range set {
		if len(group.Polygons) == 0 {
			continue
		}

		var g geom.T
		if len(group.Polygons) == 1 {
			g = group.Polygons[0]
		} else {
			mp := geom.NewMultiPolygon(geom.XY)
			for _, poly := range group.Polygons {
				if err := mp.Push(poly); err != nil {
					zap.L().Debug("skipping malformed isochrone polygon", zap.Error(err))
				}
			}
			g = mp
		}

		encoded, err := geojson.Encode(g)
		if err != nil {
			zap.L().Warn("failed to encode isochrone geometry", zap.Error(err))
			continue
		}
		geometries = append(geometries, encoded)
	}
	return geometries
}
