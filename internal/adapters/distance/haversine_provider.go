package distance

import (
	"context"
	"math"
	"storefront-distance-service/internal/domain"
)

const earthRadiusMeters = 6371000.0

// HaversineProvider answers distance tables offline with great-circle meters.
// It is meant for local development and tests where no routing service is reachable.
type HaversineProvider struct{}

func NewHaversineProvider() *HaversineProvider {
	return &HaversineProvider{}
}

func (HaversineProvider) Table(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
) ([]*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*float64, 0, len(destinations))
	for _, d := range destinations {
		m := HaversineMeters(origin, d)
		out = append(out, &m)
	}
	return out, nil
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b domain.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
