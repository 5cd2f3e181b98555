package handlers

import (
	"net/http"
	"storefront-distance-service/internal/api/dto"
	"storefront-distance-service/internal/ports"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type GeocodeHandler struct {
	Geocoder ports.Geocoder
	Logger   *zap.Logger
}

func (h *GeocodeHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, h.Logger, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}

	name, ok := h.Geocoder.ReverseGeocode(r.Context(), lat, lon)
	if !ok {
		writeError(w, r, h.Logger, http.StatusNotFound, "location not found")
		return
	}

	writeJSON(w, r, h.Logger, http.StatusOK, dto.ReverseGeocodeResponse{Location: name})
}

func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, h.Logger, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, h.Logger, http.StatusBadRequest, "q is required")
		return
	}

	place, ok := h.Geocoder.Search(r.Context(), query)
	if !ok {
		writeError(w, r, h.Logger, http.StatusNotFound, "place not found")
		return
	}

	writeJSON(w, r, h.Logger, http.StatusOK, dto.SearchResponse{
		Lat:         place.Lat,
		Lon:         place.Lon,
		DisplayName: place.DisplayName,
	})
}
