package cache

import (
	"context"
	"fmt"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/ports"
)

// TieredDistanceCache serves from process memory first and falls back to a
// shared backing store. Backing hits are promoted into memory.
type TieredDistanceCache struct {
	Front *MemoryDistanceCache
	Back  ports.DistanceCache
}

func NewTieredDistanceCache(front *MemoryDistanceCache, back ports.DistanceCache) *TieredDistanceCache {
	return &TieredDistanceCache{Front: front, Back: back}
}

func (t *TieredDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Coordinates,
	shopIDs []string,
) (map[string]string, error) {
	out, _ := t.Front.GetMany(ctx, origin, shopIDs)

	misses := make([]string, 0, len(shopIDs))
	for _, id := range shopIDs {
		if _, ok := out[id]; !ok {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 || t.Back == nil {
		return out, nil
	}

	backHits, err := t.Back.GetMany(ctx, origin, misses)
	if err != nil {
		return out, fmt.Errorf("tiered cache: backing get: %w", err)
	}

	_ = t.Front.PutMany(ctx, origin, backHits)
	for id, km := range backHits {
		out[id] = km
	}

	return out, nil
}

func (t *TieredDistanceCache) PutMany(
	ctx context.Context,
	origin domain.Coordinates,
	distances map[string]string,
) error {
	_ = t.Front.PutMany(ctx, origin, distances)

	if t.Back == nil {
		return nil
	}
	if err := t.Back.PutMany(ctx, origin, distances); err != nil {
		return fmt.Errorf("tiered cache: backing put: %w", err)
	}
	return nil
}
