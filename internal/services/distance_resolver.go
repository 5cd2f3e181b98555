package services

import (
	"context"
	"errors"
	"fmt"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"
	"storefront-distance-service/internal/platform/queue"
	"storefront-distance-service/internal/ports"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBatchDelay     = time.Second
	DefaultRateLimitDelay = time.Second
)

// DistanceResolver computes driving distances from an origin to many shops.
//
// Lookups are best-effort: cached entries are served immediately, misses are
// fetched in batches through a shared serialized queue, and any batch that
// fails is skipped. Callers never see an error, only missing entries.
//
// The resolver is safe for concurrent use; all of its upstream traffic is
// funnelled through Queue, one caller at a time.
type DistanceResolver struct {
	Routing ports.RoutingProvider
	Cache   ports.DistanceCache
	Queue   *queue.Queue
	Logger  *zap.Logger

	BatchSize      int
	BatchDelay     time.Duration
	RateLimitDelay time.Duration
}

func NewDistanceResolver(
	routing ports.RoutingProvider,
	cache ports.DistanceCache,
	q *queue.Queue,
	logger *zap.Logger,
) *DistanceResolver {
	logger = obs.OrNop(logger)
	if q == nil {
		q = queue.New(queue.DefaultDelay, logger)
	}

	return &DistanceResolver{
		Routing:        routing,
		Cache:          cache,
		Queue:          q,
		Logger:         logger,
		BatchSize:      MaxDestinationsPerRequest,
		BatchDelay:     DefaultBatchDelay,
		RateLimitDelay: DefaultRateLimitDelay,
	}
}

// Distances returns shop id -> kilometer string for every shop it could resolve.
// Shops without coordinates and shops whose lookup failed are absent.
func (r *DistanceResolver) Distances(
	ctx context.Context,
	origin domain.Coordinates,
	shops []domain.ShopLocation,
) map[string]string {
	return r.Resolve(ctx, origin, shops).Resolved
}

// Resolve is Distances with the failed lookups reported separately, so callers
// can tell "not routable" from "lookup failed, try again later".
func (r *DistanceResolver) Resolve(
	ctx context.Context,
	origin domain.Coordinates,
	shops []domain.ShopLocation,
) ports.DistanceResult {
	logger := obs.OrNop(r.Logger).With(zap.String("req_id", obs.RequestID(ctx)))

	routable := routableShops(shops)
	ids := make([]string, 0, len(routable))
	for _, s := range routable {
		ids = append(ids, s.ID)
	}

	res := ports.DistanceResult{Resolved: make(map[string]string, len(routable))}
	if len(routable) == 0 {
		return res
	}

	if r.Cache != nil {
		hits, err := r.Cache.GetMany(ctx, origin, ids)
		if err != nil {
			logger.Warn("distance cache read failed", zap.Error(err))
		}
		for id, km := range hits {
			res.Resolved[id] = km
		}
	}

	misses := make([]domain.ShopLocation, 0, len(routable))
	for _, s := range routable {
		if _, ok := res.Resolved[s.ID]; !ok {
			misses = append(misses, s)
		}
	}
	if len(misses) == 0 {
		return res
	}

	batches := BatchShops(misses, r.BatchSize)

	var fetched map[string]string
	task := func(ctx context.Context) error {
		fetched = r.fetchBatches(ctx, logger, origin, batches)
		return nil
	}

	if r.Queue == nil {
		_ = task(ctx)
	} else {
		done, err := r.Queue.Enqueue(ctx, task)
		if err != nil {
			logger.Warn("distance lookup not queued", zap.Error(err))
		} else if err := <-done; err != nil {
			logger.Info("distance lookup skipped", zap.Error(err))
		}
	}

	for id, km := range fetched {
		res.Resolved[id] = km
	}
	for _, s := range misses {
		if _, ok := fetched[s.ID]; !ok {
			res.Failed = append(res.Failed, s.ID)
		}
	}

	logger.Debug("distances resolved",
		zap.Int("shops", len(shops)),
		zap.Int("routable", len(routable)),
		zap.Int("cached", len(routable)-len(misses)),
		zap.Int("fetched", len(fetched)),
		zap.Int("failed", len(res.Failed)),
	)

	return res
}

// fetchBatches runs inside the queue. Batches go out in order with BatchDelay
// between them; a rate-limited batch costs an extra RateLimitDelay and is skipped.
func (r *DistanceResolver) fetchBatches(
	ctx context.Context,
	logger *zap.Logger,
	origin domain.Coordinates,
	batches [][]domain.ShopLocation,
) map[string]string {
	out := make(map[string]string)

	for i, batch := range batches {
		if i > 0 && !sleepCtx(ctx, r.BatchDelay) {
			logger.Info("distance lookup cancelled", zap.Int("remaining_batches", len(batches)-i))
			break
		}

		got, err := r.fetchBatch(ctx, origin, batch)
		if err != nil {
			if errors.Is(err, ports.ErrRateLimited) {
				logger.Warn("routing rate limited; skipping batch",
					zap.Int("batch", i), zap.Int("size", len(batch)))
				if !sleepCtx(ctx, r.RateLimitDelay) {
					break
				}
				continue
			}
			logger.Warn("routing batch failed; skipping",
				zap.Int("batch", i), zap.Int("size", len(batch)), zap.Error(err))
			continue
		}

		for id, km := range got {
			out[id] = km
		}

		if r.Cache != nil && len(got) > 0 {
			if err := r.Cache.PutMany(ctx, origin, got); err != nil {
				logger.Warn("distance cache write failed", zap.Error(err))
			}
		}
	}

	return out
}

func (r *DistanceResolver) fetchBatch(
	ctx context.Context,
	origin domain.Coordinates,
	batch []domain.ShopLocation,
) (_ map[string]string, err error) {
	defer obs.Time(ctx, r.Logger, "resolver.fetchBatch")(&err)

	if r.Routing == nil {
		return nil, errors.New("fetch batch: no routing provider")
	}

	dests := make([]domain.Coordinates, 0, len(batch))
	for _, s := range batch {
		c, _ := s.Coordinates()
		dests = append(dests, c)
	}

	row, err := r.Routing.Table(ctx, origin, dests)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	if len(row) != len(batch) {
		return nil, fmt.Errorf("fetch batch: got %d distances for %d shops", len(row), len(batch))
	}

	out := make(map[string]string, len(batch))
	for i, s := range batch {
		if row[i] == nil {
			continue
		}
		out[s.ID] = FormatKilometers(*row[i])
	}
	return out, nil
}

// routableShops keeps shops with both coordinates, first occurrence per id.
func routableShops(shops []domain.ShopLocation) []domain.ShopLocation {
	seen := make(map[string]struct{}, len(shops))
	out := make([]domain.ShopLocation, 0, len(shops))
	for _, s := range shops {
		if s.ID == "" {
			continue
		}
		if _, ok := s.Coordinates(); !ok {
			continue
		}
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
