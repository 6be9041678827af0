// Package nominatim provides place-name geocoding via a Nominatim-compatible
// search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client geocodes free-form place queries.
type Client interface {
	// Geocode returns candidate coordinates for the query, best match first.
	Geocode(ctx context.Context, query string) ([]Coordinate, error)

	// GeocodeDetailed returns candidate places with display names, OSM
	// classification, and address breakdown.
	GeocodeDetailed(ctx context.Context, query string) ([]Place, error)
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Place is a detailed geocoding match.
type Place struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Name        string
	Type        string
	Class       string
	Address     map[string]string
}

// APIError is returned when the endpoint responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nominatim: HTTP %d: %s", e.StatusCode, e.Body)
}

// DecodeError is returned when the response body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nominatim: invalid response body: %v", e.Err)
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

// WithUserAgent sets the User-Agent header. Public Nominatim instances
// require an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit. The public instance
// allows at most 1 req/s.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a Client for the given Nominatim endpoint.
func NewClient(baseURL string, opts ...Option) (Client, error) {
	if baseURL == "" {
		return nil, eris.New("nominatim: endpoint must not be empty")
	}
	c := &httpClient{
		baseURL:   baseURL,
		userAgent: "innsight",
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// searchItem is one entry of the /search JSON response. Nominatim encodes
// coordinates as strings.
type searchItem struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Class       string            `json:"class"`
	Address     map[string]string `json:"address"`
}

func (c *httpClient) Geocode(ctx context.Context, query string) ([]Coordinate, error) {
	items, err := c.search(ctx, query, false)
	if err != nil {
		return nil, err
	}

	coords := make([]Coordinate, 0, len(items))
	for _, item := range items {
		lat, lon, ok := parseCoords(item)
		if !ok {
			continue
		}
		coords = append(coords, Coordinate{Lat: lat, Lon: lon})
	}
	return coords, nil
}

func (c *httpClient) GeocodeDetailed(ctx context.Context, query string) ([]Place, error) {
	items, err := c.search(ctx, query, true)
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(items))
	for _, item := range items {
		lat, lon, ok := parseCoords(item)
		if !ok {
			continue
		}
		places = append(places, Place{
			Lat:         lat,
			Lon:         lon,
			DisplayName: item.DisplayName,
			Name:        item.Name,
			Type:        item.Type,
			Class:       item.Class,
			Address:     item.Address,
		})
	}
	return places, nil
}

func (c *httpClient) search(ctx context.Context, query string, detailed bool) ([]searchItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"format": {"json"},
		"q":      {query},
	}
	if detailed {
		params.Set("addressdetails", "1")
	}

	reqURL := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var items []searchItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return items, nil
}

// parseCoords converts the string-encoded lat/lon of a search item. Items
// with unparseable coordinates are skipped, matching the lenient handling
// expected of Nominatim output.
func parseCoords(item searchItem) (lat, lon float64, ok bool) {
	lat, errLat := strconv.ParseFloat(item.Lat, 64)
	lon, errLon := strconv.ParseFloat(item.Lon, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
