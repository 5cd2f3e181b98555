package ports

import (
	"context"
	"errors"
	"storefront-distance-service/internal/domain"
)

// Contract for a one-source distance table.
type RoutingProvider interface {
	// Return meters from origin to each destination, in request order.
	// A nil entry means the destination could not be routed.
	Table(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates) ([]*float64, error)
}

// ErrRateLimited is returned by a RoutingProvider when the upstream signalled HTTP 429.
var ErrRateLimited = errors.New("routing service rate limited the request")
