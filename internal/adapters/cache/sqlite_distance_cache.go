package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"storefront-distance-service/internal/domain"
	"strings"
)

// SQLite backed cache for origin->shop distances.
// The shop_distance_cache table must exist; see repositories.InitSchema.
type SqliteDistanceCache struct {
	DB *sql.DB
}

func NewSqliteDistanceCache(db *sql.DB) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db}
}

// Fetch cached distances for one origin and multiple shops.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	origin domain.Coordinates,
	shopIDs []string,
) (map[string]string, error) {
	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	uniq := uniqueIDs(shopIDs)
	if len(uniq) == 0 {
		return map[string]string{}, nil
	}

	ph := make([]string, 0, len(uniq))
	args := make([]any, 0, 1+len(uniq))
	args = append(args, origin.Key())
	for _, id := range uniq {
		ph = append(ph, "?")
		args = append(args, id)
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        shop_id,
        distance_km
    FROM shop_distance_cache
    WHERE origin_key = ?
        AND shop_id IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
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
func (s *SqliteDistanceCache) PutMany(
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
	INSERT OR REPLACE INTO shop_distance_cache (
        shop_id,
        origin_key,
        distance_km
    )
    VALUES (?, ?, ?)
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
