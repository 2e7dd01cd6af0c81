package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/engine"
)

// TokenIndex is an FTS5 index over dictionary normalized names. Row ids
// are dictionary positions.
type TokenIndex struct {
	db    *Store
	table string
}

// BuildTokenIndex implements engine.IndexBuilder. Each call creates a fresh
// FTS5 table; Close drops it.
func (s *Store) BuildTokenIndex(ctx context.Context, dictionary []core.NameRecord) (engine.TokenIndex, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	table := "dict_fts_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf(
		"CREATE VIRTUAL TABLE %s USING fts5(name, tokenize = 'unicode61')", table)); err != nil {
		return nil, fmt.Errorf("create token index: %w", err)
	}
	index := &TokenIndex{db: s, table: table}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("begin token index load: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (rowid, name) VALUES (?, ?)", table))
	if err != nil {
		_ = tx.Rollback()
		_ = index.Close()
		return nil, fmt.Errorf("prepare token index load: %w", err)
	}
	for pos, entry := range dictionary {
		if entry.NormalizedName == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, pos, entry.NormalizedName); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			_ = index.Close()
			return nil, fmt.Errorf("load token index: %w", err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("commit token index: %w", err)
	}
	return index, nil
}

// Search implements engine.TokenIndex. Tokens are OR-ed prefix terms and
// hits are ordered by bm25 rank.
func (x *TokenIndex) Search(ctx context.Context, tokens []string, limit int) ([]int, error) {
	expr := MatchExpression(tokens)
	if expr == "" {
		return nil, errors.New("empty search expression")
	}
	rows, err := x.db.DB.QueryContext(ctx, fmt.Sprintf(
		"SELECT rowid FROM %s WHERE %s MATCH ? ORDER BY rank LIMIT ?", x.table, x.table), expr, limit)
	if err != nil {
		return nil, fmt.Errorf("token search %q: %w", expr, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	positions := make([]int, 0, limit)
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("scan token search: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("token search %q: %w", expr, err)
	}
	return positions, nil
}

// Close drops the index table.
func (x *TokenIndex) Close() error {
	if x == nil || x.db == nil || x.db.DB == nil {
		return nil
	}
	_, err := x.db.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", x.table))
	return err
}

// MatchExpression builds an FTS5 query treating every token as a quoted
// prefix term.
func MatchExpression(tokens []string) string {
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(token, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " OR ")
}
