package api

import (
	"net/http"
	"storefront-distance-service/internal/api/handlers"
	"storefront-distance-service/internal/ports"

	"go.uber.org/zap"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(resolver ports.DistanceResolver, geocoder ports.Geocoder, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	distanceHandler := &handlers.DistanceHandler{
		Resolver: resolver,
		Geocoder: geocoder,
		Logger:   logger,
	}
	geocodeHandler := &handlers.GeocodeHandler{Geocoder: geocoder, Logger: logger}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/distances", distanceHandler.Distances)
	mux.HandleFunc("/geocode/reverse", geocodeHandler.Reverse)
	mux.HandleFunc("/geocode/search", geocodeHandler.Search)

	return requestIDMiddleware(loggingMiddleware(mux, logger))
}
