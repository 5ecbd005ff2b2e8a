package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cubedash/internal/cache"
	"cubedash/internal/model"
	"cubedash/internal/reproject"
	"cubedash/internal/summary"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type stubBackend struct {
	summaries map[string]*summary.PeriodSummary
	limit     int
}

func (s *stubBackend) Get(_ context.Context, product string, t summary.TimeSpec) (*summary.PeriodSummary, error) {
	return s.summaries[product+":"+t.String()], nil
}

func (s *stubBackend) GetOrUpdate(ctx context.Context, product string, t summary.TimeSpec) (*summary.PeriodSummary, error) {
	return s.Get(ctx, product, t)
}

func (s *stubBackend) GetDatasetFootprints(_ context.Context, _ string, _ summary.TimeSpec, limit int) (*geojson.FeatureCollection, error) {
	s.limit = limit
	return geojson.NewFeatureCollection(), nil
}

func (s *stubBackend) ListCompleteProducts(context.Context) ([]string, error) { return nil, nil }

func (s *stubBackend) GetLastUpdated(context.Context) (*time.Time, error) {
	t := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	return &t, nil
}

func (s *stubBackend) GetProduct(_ context.Context, name string) (*summary.Product, error) {
	return &summary.Product{Name: name}, nil
}

func (s *stubBackend) ListProducts(context.Context) ([]summary.Product, error) { return nil, nil }

func newServer(t *testing.T) (*httptest.Server, *stubBackend) {
	t.Helper()
	b := &stubBackend{summaries: map[string]*summary.PeriodSummary{
		"ls8:2017:-:-": {
			DatasetCount:      4,
			FootprintCount:    4,
			FootprintGeometry: orb.Polygon{{{140, -35}, {141, -35}, {141, -34}, {140, -34}, {140, -35}}},
			FootprintCRS:      "EPSG:4326",
		},
	}}
	svc := model.NewService(b, cache.New(cache.NewMemoryStore(32), ""), reproject.New(), nil, "")
	srv := httptest.NewServer(BuildRoutes(svc))
	t.Cleanup(srv.Close)
	return srv, b
}

func TestFootprintRoute(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/footprint/ls8/2017")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != "Feature" || body.Properties["product_name"] != "ls8" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRouteStatuses(t *testing.T) {
	srv, _ := newServer(t)
	cases := []struct {
		path string
		want int
	}{
		{"/footprint/ls8", http.StatusNotFound},
		{"/footprint/ls8/2017/13", http.StatusBadRequest},
		{"/footprint/ls8/abc", http.StatusBadRequest},
		{"/footprint/ls8/2019/2/31", http.StatusBadRequest},
		{"/regions/ls8/2017", http.StatusNotFound},
		{"/summary/ls8/2017", http.StatusOK},
		{"/datasets/ls8?limit=x", http.StatusBadRequest},
		{"/datasets/ls8?limit=10", http.StatusOK},
	}
	for _, c := range cases {
		resp, err := http.Get(srv.URL + c.path)
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != c.want {
			t.Fatalf("%s: status %d want %d", c.path, resp.StatusCode, c.want)
		}
	}
}

func TestDatasetsLimitPassedThrough(t *testing.T) {
	srv, b := newServer(t)
	resp, err := http.Get(srv.URL + "/datasets/ls8/2017?limit=7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if b.limit != 7 {
		t.Fatalf("limit %d", b.limit)
	}
}

func TestLastUpdatedRoute(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/last-updated")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body["last_updated"], "2020-01-02T03:04:05") {
		t.Fatalf("unexpected %v", body)
	}
}

func TestProductsRouteWithoutSummaries(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/products")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
