package store

import (
	"context"
	"errors"
	"fmt"
)

// migrations are applied in order; the schema version is the number of
// migrations applied, tracked in PRAGMA user_version. Append only.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS judgment_cache (
			query_name TEXT NOT NULL,
			dict_name TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_slug TEXT NOT NULL,
			decision TEXT NOT NULL,
			reason TEXT,
			judged_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL,
			PRIMARY KEY (query_name, dict_name, model, prompt_slug)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_judgment_cache_expires ON judgment_cache(expires_at)`,
	},
}

// SchemaVersion is the version Migrate brings a store to.
var SchemaVersion = len(migrations)

// Migrate applies pending migrations, one transaction each. A store newer
// than this binary is an error.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for v := current; v < SchemaVersion; v++ {
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("store migration %d failed: %w", v+1, err)
			}
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}
