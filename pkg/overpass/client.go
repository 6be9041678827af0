// Package overpass provides OpenStreetMap POI queries via an Overpass API
// endpoint.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client runs Overpass QL queries.
type Client interface {
	// Query executes an Overpass QL statement and returns its elements.
	Query(ctx context.Context, ql string) ([]Element, error)
}

// Element is one node, way, or relation from an Overpass response.
type Element struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *Center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

// Center is the centroid Overpass reports for ways and relations when the
// query uses "out center".
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location returns the element's coordinates, preferring the node position
// and falling back to the way/relation centroid.
func (e Element) Location() (lat, lon float64, ok bool) {
	if e.Lat != 0 || e.Lon != 0 {
		return e.Lat, e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// APIError is returned when the endpoint responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("overpass: HTTP %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when the response body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("overpass: invalid response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithQueryTimeout sets the server-side [timeout:] injected into queries
// that do not carry one.
func WithQueryTimeout(seconds int) Option {
	return func(c *httpClient) {
		c.queryTimeout = seconds
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

const defaultQueryTimeout = 25

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL      string
	queryTimeout int
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a Client for the given Overpass endpoint.
func NewClient(baseURL string, opts ...Option) (Client, error) {
	if baseURL == "" {
		return nil, eris.New("overpass: endpoint must not be empty")
	}
	c := &httpClient{
		baseURL:      baseURL,
		queryTimeout: defaultQueryTimeout,
		limiter:      rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		// Client timeout exceeds the server-side query timeout so slow
		// but successful queries are not cut off locally.
		c.http = &http.Client{Timeout: time.Duration(c.queryTimeout+5) * time.Second}
	}
	return c, nil
}

// queryResponse is the Overpass JSON envelope.
type queryResponse struct {
	Elements []Element `json:"elements"`
}

func (c *httpClient) Query(ctx context.Context, ql string) ([]Element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	ql = c.injectTimeout(ql)
	form := url.Values{"data": {ql}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return qr.Elements, nil
}

// injectTimeout adds the configured server-side timeout when the query does
// not set one.
func (c *httpClient) injectTimeout(ql string) string {
	if strings.Contains(ql, "[timeout:") {
		return ql
	}
	return strings.Replace(ql, "[out:json]", fmt.Sprintf("[out:json][timeout:%d]", c.queryTimeout), 1)
}
