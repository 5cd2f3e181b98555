package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Initialize the distance cache schema for the given dialect.
func InitSchema(db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch dialect {
	case DialectPostgres, DialectSQLite:
		// Both dialects accept the same DDL here.
		statements = []string{
			`
			CREATE TABLE IF NOT EXISTS shop_distance_cache (
				shop_id TEXT NOT NULL,
				origin_key TEXT NOT NULL,
				distance_km TEXT NOT NULL,
				PRIMARY KEY (shop_id, origin_key)
			);
			`,
			`
			CREATE INDEX IF NOT EXISTS idx_shop_distance_cache_origin
			ON shop_distance_cache(origin_key, shop_id);
			`,
		}
	default:
		return fmt.Errorf("init schema: unsupported dialect %q", dialect)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Remove every cached distance. Returns the number of deleted rows.
func PurgeDistanceCache(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("purge distance cache: DB is nil")
	}

	res, err := db.Exec(`DELETE FROM shop_distance_cache;`)
	if err != nil {
		return 0, fmt.Errorf("purge distance cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge distance cache: rows affected: %w", err)
	}
	return n, nil
}
