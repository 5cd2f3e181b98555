package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"
	"storefront-distance-service/internal/ports"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubResolver struct{}

func (stubResolver) Distances(context.Context, domain.Coordinates, []domain.ShopLocation) map[string]string {
	return map[string]string{}
}

func (stubResolver) Resolve(context.Context, domain.Coordinates, []domain.ShopLocation) ports.DistanceResult {
	return ports.DistanceResult{}
}

type stubGeocoder struct{}

func (stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, bool) {
	return "Somewhere", true
}

func (stubGeocoder) Search(context.Context, string) (domain.Place, bool) {
	return domain.Place{}, false
}

func TestRouter_RoutesAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := NewRouter(stubResolver{}, stubGeocoder{}, zap.New(core))

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/geocode/reverse?lat=1&lon=2")
	assert.Equal(t, http.StatusOK, rec.Code)

	id := rec.Header().Get("X-Request-ID")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get("/geocode/search?q=nowhere").Code)
	assert.Equal(t, http.StatusNotFound, get("/missing").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, get("/distances").Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 4)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["req_id"])
	assert.Equal(t, "/geocode/reverse?lat=1&lon=2", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRequestIDMiddleware_HonoursIncomingHeader(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = obs.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
