package ports

import (
	"context"
	"storefront-distance-service/internal/domain"
)

// Contract for best-effort place lookups. A false result means nothing usable was found.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool)
	Search(ctx context.Context, query string) (domain.Place, bool)
}
