package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"storefront-distance-service/internal/domain"
	"storefront-distance-service/internal/platform/obs"

	"go.uber.org/zap"
)

// SQLDistanceCache is a Postgres-backed cache for origin->shop distances.
type SQLDistanceCache struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func NewSQLDistanceCache(db *sql.DB, logger *zap.Logger) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db, Logger: logger}
}

// Fetch cached distances for one origin and multiple shops.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Coordinates,
	shopIDs []string,
) (_ map[string]string, err error) {
	defer obs.Time(ctx, s.Logger, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	uniq := uniqueIDs(shopIDs)
	if len(uniq) == 0 {
		return map[string]string{}, nil
	}

	q := `
	SELECT shop_id, distance_km
    FROM shop_distance_cache
    WHERE origin_key = $1
        AND shop_id = ANY($2::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, origin.Key(), uniq)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query shop_distance_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(uniq))
	for rows.Next() {
		var id, km string
		if err := rows.Scan(&id, &km); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[id] = km
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many cached distances for a single origin.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin domain.Coordinates,
	distances map[string]string,
) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if len(distances) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO shop_distance_cache (shop_id, origin_key, distance_km)
    VALUES ($1, $2, $3)
	ON CONFLICT (shop_id, origin_key) DO UPDATE
	SET distance_km = EXCLUDED.distance_km;
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	originKey := origin.Key()
	for id, km := range distances {
		if id == "" {
			return fmt.Errorf("insert distance cache: empty shop id")
		}

		if _, err := stmt.ExecContext(ctx, id, originKey, km); err != nil {
			return fmt.Errorf("insert distance cache shop=%q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}
