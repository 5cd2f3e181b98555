package cache

import (
	"context"
	"errors"
	"fmt"
	"storefront-distance-service/internal/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDistanceCache shares memoized distances between service replicas.
// A zero TTL stores entries without expiry.
type RedisDistanceCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisDistanceCache(client *redis.Client, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{Client: client, Prefix: "dist", TTL: ttl}
}

func (r *RedisDistanceCache) key(shopID string, origin domain.Coordinates) string {
	return r.Prefix + ":" + shopID + ":" + origin.Key()
}

// Fetch cached distances for one origin and multiple shops.
func (r *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Coordinates,
	shopIDs []string,
) (map[string]string, error) {
	if r.Client == nil {
		return nil, errors.New("redis distance cache: client is nil")
	}

	uniq := uniqueIDs(shopIDs)
	if len(uniq) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, 0, len(uniq))
	for _, id := range uniq {
		keys = append(keys, r.key(id, origin))
	}

	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get redis distance cache: mget: %w", err)
	}

	out := make(map[string]string, len(uniq))
	for i, v := range vals {
		// MGET reports misses as nil.
		if s, ok := v.(string); ok {
			out[uniq[i]] = s
		}
	}

	return out, nil
}

// Store distances for a single origin in one pipeline round trip.
func (r *RedisDistanceCache) PutMany(
	ctx context.Context,
	origin domain.Coordinates,
	distances map[string]string,
) error {
	if r.Client == nil {
		return errors.New("redis distance cache: client is nil")
	}

	if len(distances) == 0 {
		return nil
	}

	pipe := r.Client.Pipeline()
	for id, km := range distances {
		if id == "" {
			return errors.New("insert redis distance cache: empty shop id")
		}
		pipe.Set(ctx, r.key(id, origin), km, r.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert redis distance cache: pipeline exec: %w", err)
	}

	return nil
}
