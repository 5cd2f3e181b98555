package ports

import (
	"context"
	"storefront-distance-service/internal/domain"
)

// Outcome of a distance lookup.
// Resolved maps shop id to a kilometer string; Failed lists routable shops
// whose lookup did not succeed in this call.
type DistanceResult struct {
	Resolved map[string]string
	Failed   []string
}

// Contract consumed by shop and product list views.
type DistanceResolver interface {
	Distances(ctx context.Context, origin domain.Coordinates, shops []domain.ShopLocation) map[string]string
	Resolve(ctx context.Context, origin domain.Coordinates, shops []domain.ShopLocation) DistanceResult
}
