package cache

import (
	"context"
	"storefront-distance-service/internal/domain"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryDistanceCache memoizes distances in process memory.
//
// Keys are the shop id plus the exact origin coordinates. With size and ttl
// both zero the cache never evicts; a positive size bounds it with LRU
// eviction and a positive ttl expires entries.
//
// The cache is safe for concurrent use.
type MemoryDistanceCache struct {
	size int
	ttl  time.Duration
	lru  *expirable.LRU[string, string]
}

func NewMemoryDistanceCache(size int, ttl time.Duration) *MemoryDistanceCache {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryDistanceCache{
		size: size,
		ttl:  ttl,
		lru:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

func memoryKey(shopID string, lat, lon float64) string {
	return shopID + "|" + strconv.FormatFloat(lat, 'g', -1, 64) + "," + strconv.FormatFloat(lon, 'g', -1, 64)
}

// Lookup returns the cached distance for a shop seen from an exact origin.
func (m *MemoryDistanceCache) Lookup(shopID string, lat, lon float64) (string, bool) {
	return m.lru.Get(memoryKey(shopID, lat, lon))
}

// Store overwrites the cached distance for a shop seen from an exact origin.
func (m *MemoryDistanceCache) Store(shopID string, lat, lon float64, km string) {
	m.lru.Add(memoryKey(shopID, lat, lon), km)
}

// Len reports the number of live entries.
func (m *MemoryDistanceCache) Len() int {
	return m.lru.Len()
}

// Reset drops every entry.
func (m *MemoryDistanceCache) Reset() {
	m.lru.Purge()
}

func (m *MemoryDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Coordinates,
	shopIDs []string,
) (map[string]string, error) {
	out := make(map[string]string, len(shopIDs))
	for _, id := range shopIDs {
		if km, ok := m.Lookup(id, origin.Lat, origin.Lon); ok {
			out[id] = km
		}
	}
	return out, nil
}

func (m *MemoryDistanceCache) PutMany(
	ctx context.Context,
	origin domain.Coordinates,
	distances map[string]string,
) error {
	for id, km := range distances {
		m.Store(id, origin.Lat, origin.Lon, km)
	}
	return nil
}
