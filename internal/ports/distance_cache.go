package ports

import (
	"context"
	"storefront-distance-service/internal/domain"
)

// Contract for memoized origin->shop distances.
// Values are kilometer strings with one decimal digit.
type DistanceCache interface {
	// Return cached distances for one origin and many shops. Misses are absent from the map.
	GetMany(ctx context.Context, origin domain.Coordinates, shopIDs []string) (map[string]string, error)
	// Store distances for one origin. Existing entries are overwritten.
	PutMany(ctx context.Context, origin domain.Coordinates, distances map[string]string) error
}
