package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsight-labs/innsight/internal/cache"
	"github.com/innsight-labs/innsight/internal/model"
	"github.com/innsight-labs/innsight/internal/parser"
	"github.com/innsight-labs/innsight/internal/pipeline"
	"github.com/innsight-labs/innsight/internal/resilience"
)

type stubRecommender struct {
	result *model.RecommendationResult
	err    error
	stats  cache.Stats
	lastQ  pipeline.Request
}

func (s *stubRecommender) Recommend(_ context.Context, req pipeline.Request) (*model.RecommendationResult, error) {
	s.lastQ = req
	return s.result, s.err
}

func (s *stubRecommender) CacheStats() cache.Stats { return s.stats }

type stubResilienceStats struct{}

func (stubResilienceStats) BreakerStates() map[string]resilience.CircuitState {
	return map[string]resilience.CircuitState{"geocoder": resilience.CircuitClosed}
}

func (stubResilienceStats) FallbackStats() resilience.FallbackStats {
	return resilience.FallbackStats{Size: 2, Hits: 5}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := NewServer(&stubRecommender{})
	rec := doRequest(t, srv.Router(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecommend_OK(t *testing.T) {
	stub := &stubRecommender{result: model.EmptyResult(model.MainPOI{Name: "首里城"})}
	srv := NewServer(stub)

	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/recommend",
		`{"query":"去首里城","filters":["pet"],"limit":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "去首里城", stub.lastQ.Query)
	assert.Equal(t, []string{"pet"}, stub.lastQ.Filters)
	assert.Equal(t, 5, stub.lastQ.Limit)

	var result model.RecommendationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "首里城", result.MainPOI.Name)
}

func TestRecommend_BadBody(t *testing.T) {
	srv := NewServer(&stubRecommender{})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/recommend", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommend_ParseError(t *testing.T) {
	srv := NewServer(&stubRecommender{err: parser.ErrNoIntent})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/recommend", `{"query":"hmm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestRecommend_ServiceUnavailable(t *testing.T) {
	srv := NewServer(&stubRecommender{
		err: &pipeline.ServiceUnavailableError{Err: eris.New("down")},
	})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/recommend", `{"query":"去首里城"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecommend_InternalError(t *testing.T) {
	srv := NewServer(&stubRecommender{err: eris.New("boom")})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/recommend", `{"query":"去首里城"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCacheStats(t *testing.T) {
	srv := NewServer(
		&stubRecommender{stats: cache.Stats{Size: 3, Hits: 7, Misses: 2}},
		WithResilienceStats(stubResilienceStats{}),
	)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/api/cache/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload, "results")
	assert.Contains(t, payload, "isochrone_fallback")
	assert.Contains(t, payload, "breakers")

	var breakers map[string]string
	require.NoError(t, json.Unmarshal(payload["breakers"], &breakers))
	assert.Equal(t, "closed", breakers["geocoder"])
}

func TestRequestID_Preserved(t *testing.T) {
	srv := NewServer(&stubRecommender{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
