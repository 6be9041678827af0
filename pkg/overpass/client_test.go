package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithHTTPClient(srv.Client()), WithRateLimit(1000)}, opts...)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(r.PostForm.Get("data"), `["tourism"]`) {
			t.Errorf("query not forwarded: %q", r.PostForm.Get("data"))
		}
		w.Write([]byte(`{"elements": [
			{"id": 101, "type": "node", "lat": 26.21, "lon": 127.68, "tags": {"tourism": "hotel", "name": "Hotel A"}},
			{"id": 202, "type": "way", "center": {"lat": 26.33, "lon": 127.80}, "tags": {"tourism": "guest_house"}}
		]}`))
	})

	elements, err := c.Query(context.Background(), `[out:json];nwr["tourism"];out center;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(elements))
	}

	lat, lon, ok := elements[0].Location()
	if !ok || lat != 26.21 || lon != 127.68 {
		t.Errorf("node location = %v,%v ok=%v", lat, lon, ok)
	}

	// Ways carry coordinates via their centroid.
	lat, lon, ok = elements[1].Location()
	if !ok || lat != 26.33 || lon != 127.80 {
		t.Errorf("way center location = %v,%v ok=%v", lat, lon, ok)
	}

	if elements[0].Tags["name"] != "Hotel A" {
		t.Errorf("unexpected tags %v", elements[0].Tags)
	}
}

func TestQuery_TimeoutInjected(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotQuery = r.PostForm.Get("data")
		w.Write([]byte(`{"elements": []}`))
	}, WithQueryTimeout(30))

	_, err := c.Query(context.Background(), `[out:json];node(1);out;`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotQuery, "[out:json][timeout:30]") {
		t.Errorf("timeout not injected: %q", gotQuery)
	}
}

func TestQuery_TimeoutPreserved(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotQuery = r.PostForm.Get("data")
		w.Write([]byte(`{"elements": []}`))
	})

	_, err := c.Query(context.Background(), `[out:json][timeout:90];node(1);out;`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(gotQuery, "[timeout:") != 1 {
		t.Errorf("existing timeout not preserved: %q", gotQuery)
	}
}

func TestQuery_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server overload", http.StatusGatewayTimeout)
	})

	_, err := c.Query(context.Background(), `[out:json];node(1);out;`)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 504 {
		t.Errorf("expected 504, got %d", apiErr.StatusCode)
	}
}

func TestQuery_InvalidBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("runtime error: memory exhausted"))
	})

	_, err := c.Query(context.Background(), `[out:json];node(1);out;`)
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Error("expected error for empty endpoint")
	}
}
