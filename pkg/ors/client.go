// Package ors provides travel-time isochrone fetching from an
// openrouteservice-compatible API.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/time/rate"
)

// Client fetches isochrone polygons.
type Client interface {
	// Isochrones returns one geometry group per requested range, ordered
	// ascending by travel time.
	Isochrones(ctx context.Context, req IsochroneRequest) ([]RangeGeometry, error)
}

// IsochroneRequest describes one isochrone computation.
type IsochroneRequest struct {
	// Profile is the routing profile, e.g. "driving-car".
	Profile string
	// Lon and Lat locate the isochrone center.
	Lon float64
	Lat float64
	// RangesSeconds are the travel-time thresholds in seconds.
	RangesSeconds []int
}

// RangeGeometry is the reachable area for one travel-time threshold.
type RangeGeometry struct {
	Seconds  int
	Polygons []*geom.Polygon
}

// APIError is returned when the endpoint responds with a non-2xx status or
// an error payload.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ors: API error %d: %s", e.StatusCode, e.Message)
}

// DecodeError is returned when the response body is not valid GeoJSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ors: invalid response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

const defaultBaseURL = "https://api.openrouteservice.org/v2"

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an isochrone Client with the given API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isochroneRequestBody is the POST /isochrones/{profile} payload.
type isochroneRequestBody struct {
	Locations [][]float64 `json:"locations"`
	Range     []int       `json:"range"`
}

// errorEnvelope matches the error payload openrouteservice returns both on
// non-2xx statuses and occasionally inside 200 bodies.
type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) Isochrones(ctx context.Context, req IsochroneRequest) ([]RangeGeometry, error) {
	if len(req.RangesSeconds) == 0 {
		return nil, eris.New("ors: at least one range is required")
	}
	profile := req.Profile
	if profile == "" {
		profile = "driving-car"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ors: rate limit")
	}

	body, err := json.Marshal(isochroneRequestBody{
		Locations: [][]float64{{req.Lon, req.Lat}},
		Range:     req.RangesSeconds,
	})
	if err != nil {
		return nil, eris.Wrap(err, "ors: marshal request")
	}

	reqURL := fmt.Sprintf("%s/isochrones/%s", c.baseURL, profile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ors: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "ors: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ors: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiMessage(respBody)}
	}

	// Some deployments report errors inside a 200 body.
	var envelope errorEnvelope
	if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error != nil {
		return nil, &APIError{StatusCode: envelope.Error.Code, Message: envelope.Error.Message}
	}

	return decodeIsochrones(respBody)
}

// decodeIsochrones parses the GeoJSON FeatureCollection response into
// per-range polygon groups, ascending by travel time.
func decodeIsochrones(body []byte) ([]RangeGeometry, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, &DecodeError{Err: err}
	}

	byRange := make(map[int][]*geom.Polygon)
	for _, f := range fc.Features {
		seconds := rangeValue(f.Properties)

		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			byRange[seconds] = append(byRange[seconds], g)
		case *geom.MultiPolygon:
			for i := 0; i < g.NumPolygons(); i++ {
				byRange[seconds] = append(byRange[seconds], g.Polygon(i))
			}
		default:
			// Point features mark the isochrone center, skip them.
		}
	}

	groups := make([]RangeGeometry, 0, len(byRange))
	for seconds, polys := range byRange {
		groups = append(groups, RangeGeometry{Seconds: seconds, Polygons: polys})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Seconds < groups[j].Seconds })
	return groups, nil
}

// rangeValue extracts the travel-time threshold from feature properties.
func rangeValue(props map[string]interface{}) int {
	if props == nil {
		return 0
	}
	if v, ok := props["value"].(float64); ok {
		return int(v)
	}
	return 0
}

// apiMessage extracts the error message from a non-2xx body, falling back
// to the raw body text.
func apiMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return envelope.Error.Message
	}
	return string(body)
}
