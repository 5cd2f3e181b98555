// Package app assembles the distance service from configuration.
// Both the HTTP server and the CLI build their dependencies through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"storefront-distance-service/internal/adapters/cache"
	"storefront-distance-service/internal/adapters/distance"
	"storefront-distance-service/internal/adapters/geocode"
	"storefront-distance-service/internal/adapters/repositories"
	"storefront-distance-service/internal/config"
	"storefront-distance-service/internal/platform/db"
	"storefront-distance-service/internal/platform/obs"
	"storefront-distance-service/internal/platform/queue"
	"storefront-distance-service/internal/ports"
	"storefront-distance-service/internal/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Resolver *services.DistanceResolver
	Geocoder *geocode.NominatimClient
	Cache    ports.DistanceCache
	Queue    *queue.Queue
	Logger   *zap.Logger

	closers []func() error
}

// New wires concrete adapters behind ports. The returned App owns every
// connection it opened; call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = obs.OrNop(logger)
	a := &App{Logger: logger}

	distanceCache, err := a.buildCache(ctx, cfg.Cache)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Cache = distanceCache

	routing, err := buildRouting(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Queue = queue.New(cfg.Pipeline.QueueDelay, logger)
	a.closers = append(a.closers, func() error {
		a.Queue.Close()
		return nil
	})

	resolver := services.NewDistanceResolver(routing, distanceCache, a.Queue, logger)
	if cfg.Pipeline.BatchSize > 0 {
		resolver.BatchSize = cfg.Pipeline.BatchSize
	}
	resolver.BatchDelay = cfg.Pipeline.BatchDelay
	resolver.RateLimitDelay = cfg.Pipeline.RateLimitDelay
	a.Resolver = resolver

	a.Geocoder = geocode.NewNominatimClient(cfg.Geocode.BaseURL,
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
		geocode.WithUserAgent(cfg.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateEvery),
		geocode.WithLogger(logger),
	)

	logger.Info("app ready",
		zap.String("cache", cfg.Cache.Backend),
		zap.String("routing", cfg.Routing.Backend),
		zap.Int("batch_size", resolver.BatchSize),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildCache(ctx context.Context, cfg config.CacheConfig) (ports.DistanceCache, error) {
	front := cache.NewMemoryDistanceCache(cfg.Size, cfg.TTL)

	switch cfg.Backend {
	case config.CacheMemory:
		return front, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("build cache: ping redis %q: %w", cfg.RedisAddr, err)
		}
		return cache.NewTieredDistanceCache(front, cache.NewRedisDistanceCache(client, cfg.TTL)), nil

	case config.CachePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := repositories.InitSchema(conn, repositories.DialectPostgres); err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		return cache.NewTieredDistanceCache(front, cache.NewSQLDistanceCache(conn, a.Logger)), nil

	case config.CacheSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := repositories.InitSchema(conn, repositories.DialectSQLite); err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		return cache.NewTieredDistanceCache(front, cache.NewSqliteDistanceCache(conn)), nil
	}

	return nil, fmt.Errorf("build cache: unknown backend %q", cfg.Backend)
}

func buildRouting(cfg *config.Config, logger *zap.Logger) (ports.RoutingProvider, error) {
	switch cfg.Routing.Backend {
	case config.RoutingOSRM:
		return distance.NewOSRMClient(cfg.Routing.BaseURL,
			distance.WithHTTPClient(&http.Client{Timeout: cfg.Routing.Timeout}),
			distance.WithUserAgent(cfg.UserAgent),
			distance.WithLogger(logger),
		), nil
	case config.RoutingHaversine:
		return distance.NewHaversineProvider(), nil
	}
	return nil, fmt.Errorf("build routing: unknown backend %q", cfg.Routing.Backend)
}

// OpenDB opens the SQL database backing the configured cache. It is used by
// maintenance tooling; the memory and redis backends have no database.
func OpenDB(cfg config.CacheConfig) (*sql.DB, repositories.Dialect, error) {
	switch cfg.Backend {
	case config.CachePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, repositories.DialectPostgres, err
	case config.CacheSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		return conn, repositories.DialectSQLite, err
	}
	return nil, "", fmt.Errorf("open db: cache backend %q has no database", cfg.Backend)
}
