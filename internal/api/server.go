// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/innsight-labs/innsight/internal/cache"
	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/internal/parser"
	"github.com/innsight-labs/innsight/internal/pipeline"
	"github.com/innsight-labs/innsight/internal/resilience"
)

// Recommender runs one recommendation request.
type Recommender interface {
	Recommend(ctx context.Context, req pipeline.Request) (*model.RecommendationResult, error)
	CacheStats() cache.Stats
}

// ResilienceStats reports transport health for the stats endpoint.
type ResilienceStats interface {
	BreakerStates() map[string]resilience.CircuitState
	FallbackStats() resilience.FallbackStats
}

// Server handles the HTTP API.
type Server struct {
	recommender Recommender
	transports  ResilienceStats
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithResilienceStats exposes transport health on the stats endpoint.
func WithResilienceStats(rs ResilienceStats) Option {
	return func(s *Server) {
		s.transports = rs
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// NewServer creates a Server around the given recommender.
func NewServer(r Recommender, opts ...Option) *Server {
	s := &Server{
		recommender: r,
		corsOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi handler with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/recommend", s.handleRecommend)
		r.Get("/cache/stats", s.handleCacheStats)
	})

	return r
}

type recommendRequest struct {
	Query   string             `json:"query"`
	Filters []string           `json:"filters,omitempty"`
	Limit   int                `json:"limit,omitempty"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.recommender.Recommend(r.Context(), pipeline.Request{
		Query:   req.Query,
		Filters: req.Filters,
		Limit:   req.Limit,
		Weights: req.Weights,
	})
	if err != nil {
		switch {
		case parser.IsParseError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case pipeline.IsServiceUnavailable(err):
			zap.L().Warn("recommendation unavailable",
				zap.String("request_id", FromContext(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusServiceUnavailable, "external service unavailable")
		default:
			zap.L().Error("recommendation failed",
				zap.String("request_id", FromContext(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"results": s.recommender.CacheStats(),
	}
	if s.transports != nil {
		payload["isochrone_fallback"] = s.transports.FallbackStats()

		states := make(map[string]string)
		for name, st := range s.transports.BreakerStates() {
			states[name] = st.String()
		}
		payload["breakers"] = states
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
