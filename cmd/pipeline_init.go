package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innsight-labs/innsight/internal/cache"
	"github.com/innsight-labs/innsight/internal/client"
	"github.com/innsight-labs/innsight/internal/parser"
	"github.com/innsight-labs/innsight/internal/pipeline"
	"github.com/innsight-labs/innsight/internal/resilience"
	"github.com/innsight-labs/innsight/internal/scorer"
	"github.com/innsight-labs/innsight/pkg/nominatim"
	"github.com/innsight-labs/innsight/pkg/ors"
	"github.com/innsight-labs/innsight/pkg/overpass"
)

// pipelineEnv holds the initialized transports and the pipeline needed by
// the recommend/serve commands.
type pipelineEnv struct {
	Pipeline   *pipeline.Pipeline
	Transports *client.Resilient
}

// initPipeline builds the API clients, wraps them with resilience, and
// assembles the Pipeline.
func initPipeline() (*pipelineEnv, error) {
	nominatimClient, err := nominatim.NewClient(cfg.Nominatim.BaseURL,
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
		nominatim.WithRateLimit(cfg.Nominatim.RateLimit),
		nominatim.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Nominatim.TimeoutSecs) * time.Second,
		}),
	)
	if err != nil {
		return nil, eris.Wrap(err, "init nominatim client")
	}

	orsClient := ors.NewClient(cfg.ORS.Key, ors.WithBaseURL(cfg.ORS.BaseURL))

	overpassClient, err := overpass.NewClient(cfg.Overpass.BaseURL,
		overpass.WithQueryTimeout(cfg.Overpass.QueryTimeoutSecs),
	)
	if err != nil {
		return nil, eris.Wrap(err, "init overpass client")
	}

	transports := client.NewResilient(
		client.NewNominatimGeocoder(nominatimClient),
		client.NewORSIsochrones(orsClient),
		client.NewOverpassCandidates(overpassClient),
		client.Config{
			Retry: resilience.RetryConfig{
				MaxAttempts:    cfg.Retry.MaxAttempts,
				InitialBackoff: time.Duration(cfg.Retry.InitialDelaySecs) * time.Second,
				Multiplier:     cfg.Retry.BackoffFactor,
			},
			FallbackSize: cfg.Fallback.MaxSize,
			FallbackTTL:  time.Duration(cfg.Fallback.TTLHours) * time.Hour,
		},
	)

	engine := scorer.New(
		scorer.WithConfig(scorer.Config{
			MaxTier:   cfg.Scoring.MaxTier,
			MaxRating: cfg.Scoring.MaxRating,
		}),
		scorer.WithDefaultWeights(cfg.Scoring.Weights),
	)

	results := cache.New(cache.Config{
		TTL:             time.Duration(cfg.Results.TTLSecs) * time.Second,
		Capacity:        cfg.Results.MaxSize,
		CleanupInterval: time.Duration(cfg.Results.CleanupIntervalSecs) * time.Second,
	})

	p := pipeline.New(parser.New(), transports, transports, transports, engine, results,
		pipeline.Config{
			IntervalsMinutes: cfg.Search.IsochroneIntervals,
			Profile:          cfg.ORS.Profile,
			Buffer:           cfg.Search.Buffer,
		},
	)

	return &pipelineEnv{Pipeline: p, Transports: transports}, nil
}
