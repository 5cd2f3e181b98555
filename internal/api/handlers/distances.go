package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"storefront-distance-service/internal/api/dto"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxShopsPerRequest = 1000

type DistanceHandler struct {
	Resolver ports.DistanceResolver
	Geocoder ports.Geocoder
	Logger   *zap.Logger
}

// Distances resolves shop distances for a list view.
// Upstream failures never fail the request; unresolved shops are listed in "failed".
func (h *DistanceHandler) Distances(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, h.Logger, http.MethodPost) {
		return
	}

	var req dto.DistancesRequest

	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, h.Logger, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if req.Origin.Lat == nil || req.Origin.Lon == nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, "origin lat and lon are required")
		return
	}
	if len(req.Shops) > maxShopsPerRequest {
		writeError(w, r, h.Logger, http.StatusBadRequest, "too many shops")
		return
	}

	origin := domain.Coordinates{Lat: *req.Origin.Lat, Lon: *req.Origin.Lon}
	shops := make([]domain.ShopLocation, 0, len(req.Shops))
	for _, s := range req.Shops {
		shops = append(shops, domain.ShopLocation{ID: s.ID, Lat: s.Lat, Lon: s.Lon})
	}

	var (
		result   ports.DistanceResult
		location string
	)

	// Both lookups are best-effort, so neither goroutine returns an error.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		result = h.Resolver.Resolve(ctx, origin, shops)
		return nil
	})
	if req.IncludeLocation && h.Geocoder != nil {
		g.Go(func() error {
			location, _ = h.Geocoder.ReverseGeocode(ctx, origin.Lat, origin.Lon)
			return nil
		})
	}
	_ = g.Wait()

	res := dto.DistancesResponse{
		Distances: result.Resolved,
		Failed:    result.Failed,
		Location:  location,
	}
	if res.Distances == nil {
		res.Distances = map[string]string{}
	}
	if res.Failed == nil {
		res.Failed = []string{}
	}

	writeJSON(w, r, h.Logger, http.StatusOK, res)
}
