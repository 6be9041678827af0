// Package scorer converts tier, rating, and amenity signals into a single
// 0-100 score per candidate.
package scorer

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/innsight-labs/innsight/internal/model"
)

// Component keys accepted in weight maps, alongside the amenity keys.
const (
	ComponentTier   = "tier"
	ComponentRating = "rating"
)

const (
	// maxScore is the top of the score scale.
	maxScore = 100.0
	// neutralScore is used when a signal is missing or unrecognized.
	neutralScore = 50.0
)

// Config bounds the input signals.
type Config struct {
	// MaxTier is the highest valid tier value. Default: 3.
	MaxTier int
	// MaxRating is the top of the rating scale. Default: 5.
	MaxRating float64
}

// DefaultWeights returns the default component weights: travel-time tier
// dominates, rating follows, each amenity counts once.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		ComponentTier:           4,
		ComponentRating:         2,
		model.AmenityParking:    1,
		model.AmenityWheelchair: 1,
		model.AmenityKids:       1,
		model.AmenityPet:        1,
	}
}

// Engine scores candidates with configurable default weights.
type Engine struct {
	cfg      Config
	defaults map[string]float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the signal bounds.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.MaxTier > 0 {
			e.cfg.MaxTier = cfg.MaxTier
		}
		if cfg.MaxRating > 0 {
			e.cfg.MaxRating = cfg.MaxRating
		}
	}
}

// WithDefaultWeights overrides the default component weights.
func WithDefaultWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		if len(weights) > 0 {
			e.defaults = weights
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:      Config{MaxTier: 3, MaxRating: 5},
		defaults: DefaultWeights(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Score computes the weighted 0-100 score for one candidate. Overrides
// replace default weights key-by-key; unknown override keys are ignored.
// Fails when the tier is out of bounds, a weight is negative, or the
// effective weights sum to zero.
func (e *Engine) Score(c model.TieredCandidate, overrides map[string]float64) (float64, error) {
	if c.Tier < 0 || c.Tier > e.cfg.MaxTier {
		return 0, eris.Errorf("scorer: tier %d out of range 0-%d", c.Tier, e.cfg.MaxTier)
	}

	weights, err := e.mergeWeights(overrides)
	if err != nil {
		return 0, err
	}

	components := e.componentScores(c)

	var weightedSum, totalWeight float64
	for component, score := range components {
		w := weights[component]
		weightedSum += score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, eris.New("scorer: effective weights sum to zero")
	}
	return weightedSum / totalWeight, nil
}

// ScoreAll scores every candidate, failing fast on the first invalid input.
func (e *Engine) ScoreAll(candidates []model.TieredCandidate, overrides map[string]float64) ([]model.ScoredCandidate, error) {
	scored := make([]model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		s, err := e.Score(c, overrides)
		if err != nil {
			return nil, err
		}
		scored = append(scored, model.ScoredCandidate{TieredCandidate: c, Score: s})
	}
	return scored, nil
}

// mergeWeights overlays overrides onto the defaults, validating sign.
// Override keys not present in the defaults are dropped.
func (e *Engine) mergeWeights(overrides map[string]float64) (map[string]float64, error) {
	merged := make(map[string]float64, len(e.defaults))
	for k, v := range e.defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		if _, known := merged[k]; known {
			merged[k] = v
		}
	}
	for k, v := range merged {
		if v < 0 {
			return nil, eris.Errorf("scorer: weight %q must not be negative", k)
		}
	}
	return merged, nil
}

// componentScores maps each signal onto the 0-100 scale.
func (e *Engine) componentScores(c model.TieredCandidate) map[string]float64 {
	scores := make(map[string]float64, 2+len(model.AmenityKeys))

	scores[ComponentTier] = float64(c.Tier) / float64(e.cfg.MaxTier) * maxScore

	if c.Rating != nil {
		scores[ComponentRating] = *c.Rating / e.cfg.MaxRating * maxScore
	} else {
		scores[ComponentRating] = neutralScore
	}

	for _, key := range model.AmenityKeys {
		switch v := c.Amenities.Get(key); v {
		case model.AmenityYes:
			scores[key] = maxScore
		case model.AmenityNo:
			scores[key] = 0
		case model.AmenityUnknown:
			scores[key] = neutralScore
		default:
			scores[key] = neutralScore
			zap.L().Warn("unrecognized amenity value, scoring as neutral",
				zap.String("amenity", key),
				zap.String("value", string(v)),
			)
		}
	}
	return scores
}
