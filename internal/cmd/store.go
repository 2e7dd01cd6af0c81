package cmd

import (
	"context"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core/engine"
	"github.com/namelens/orgmatch/internal/core/store"
)

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// tokenIndex returns the index builder selected by match.token_index.
// The returned close func is never nil.
func tokenIndex(ctx context.Context, cfg *config.Config) (engine.IndexBuilder, func(), error) {
	if cfg.Match.TokenIndex != "store" {
		return engine.MemoryIndex{}, func() {}, nil
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}
