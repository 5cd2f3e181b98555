package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"storefront-distance-service/internal/api/dto"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/ports"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	mu     sync.Mutex
	origin domain.Coordinates
	shops  []domain.ShopLocation
	result ports.DistanceResult
}

func (f *fakeResolver) Distances(ctx context.Context, origin domain.Coordinates, shops []domain.ShopLocation) map[string]string {
	return f.Resolve(ctx, origin, shops).Resolved
}

func (f *fakeResolver) Resolve(_ context.Context, origin domain.Coordinates, shops []domain.ShopLocation) ports.DistanceResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origin = origin
	f.shops = shops
	return f.result
}

type fakeGeocoder struct {
	name  string
	place domain.Place
	ok    bool
}

func (f *fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (string, bool) {
	return f.name, f.ok
}

func (f *fakeGeocoder) Search(context.Context, string) (domain.Place, bool) {
	return f.place, f.ok
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestDistances_ReturnsResolvedAndFailed(t *testing.T) {
	resolver := &fakeResolver{result: ports.DistanceResult{
		Resolved: map[string]string{"A": "1.2"},
		Failed:   []string{"B"},
	}}
	h := &DistanceHandler{Resolver: resolver, Geocoder: &fakeGeocoder{name: "Kochi", ok: true}}

	body := `{"origin":{"lat":10,"lon":76},"shops":[{"id":"A","lat":10.01,"lon":76.01},{"id":"B"}],"include_location":true}`
	rec := httptest.NewRecorder()
	h.Distances(rec, httptest.NewRequest(http.MethodPost, "/distances", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.DistancesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, map[string]string{"A": "1.2"}, res.Distances)
	assert.Equal(t, []string{"B"}, res.Failed)
	assert.Equal(t, "Kochi", res.Location)

	assert.Equal(t, domain.Coordinates{Lat: 10, Lon: 76}, resolver.origin)
	require.Len(t, resolver.shops, 2)
	assert.Equal(t, "A", resolver.shops[0].ID)
	assert.Nil(t, resolver.shops[1].Lat)
}

func TestDistances_EmptyResultEncodesEmptyCollections(t *testing.T) {
	h := &DistanceHandler{Resolver: &fakeResolver{}}

	rec := httptest.NewRecorder()
	h.Distances(rec, httptest.NewRequest(http.MethodPost, "/distances",
		strings.NewReader(`{"origin":{"lat":10,"lon":76},"shops":[]}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"distances":{},"failed":[]}`, rec.Body.String())
}

func TestDistances_RejectsBadRequests(t *testing.T) {
	tooMany := `{"origin":{"lat":1,"lon":2},"shops":[` +
		strings.TrimSuffix(strings.Repeat(`{"id":"x"},`, maxShopsPerRequest+1), ",") + `]}`

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"origin":{"lat":1,"lon":2},"extra":1}`, http.StatusBadRequest},
		{"missing origin", http.MethodPost, `{"shops":[]}`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, `{"origin":{"lat":1,"lon":2}}{}`, http.StatusBadRequest},
		{"too many shops", http.MethodPost, tooMany, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &DistanceHandler{Resolver: &fakeResolver{}}
			rec := httptest.NewRecorder()
			h.Distances(rec, httptest.NewRequest(tt.method, "/distances", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestReverse(t *testing.T) {
	h := &GeocodeHandler{Geocoder: &fakeGeocoder{name: "Ernakulam", ok: true}}

	rec := httptest.NewRecorder()
	h.Reverse(rec, httptest.NewRequest(http.MethodGet, "/geocode/reverse?lat=10&lon=76", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"location":"Ernakulam"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Reverse(rec, httptest.NewRequest(http.MethodGet, "/geocode/reverse?lat=abc&lon=76", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.Geocoder = &fakeGeocoder{}
	rec = httptest.NewRecorder()
	h.Reverse(rec, httptest.NewRequest(http.MethodGet, "/geocode/reverse?lat=10&lon=76", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	place := domain.Place{Coordinates: domain.Coordinates{Lat: 9.93, Lon: 76.26}, DisplayName: "Kochi, Kerala"}
	h := &GeocodeHandler{Geocoder: &fakeGeocoder{place: place, ok: true}}

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/geocode/search?q=kochi", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 9.93, res.Lat)
	assert.Equal(t, 76.26, res.Lon)
	assert.Equal(t, "Kochi, Kerala", res.DisplayName)

	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/geocode/search?q=%20", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.Geocoder = &fakeGeocoder{}
	rec = httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/geocode/search?q=nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
