package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/namelens/orgmatch/internal/ailink"
)

// GetJudgment returns a cached judgment if it is still valid.
func (s *Store) GetJudgment(ctx context.Context, key ailink.CacheKey) (*ailink.Judgment, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		decision string
		reason   sql.NullString
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT decision, reason
		FROM judgment_cache
		WHERE query_name = ? AND dict_name = ? AND model = ? AND prompt_slug = ? AND expires_at > ?
	`, key.QueryName, key.DictName, key.Model, key.PromptSlug, time.Now().UTC().Unix())
	if err := row.Scan(&decision, &reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached judgment: %w", err)
	}

	return &ailink.Judgment{Decision: ailink.Decision(decision), Reason: reason.String}, nil
}

// PutJudgment stores a judgment with a TTL. ERROR verdicts are ignored.
func (s *Store) PutJudgment(ctx context.Context, key ailink.CacheKey, judgment *ailink.Judgment, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 || judgment == nil || judgment.Decision == ailink.DecisionError {
		return nil
	}

	now := time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO judgment_cache (query_name, dict_name, model, prompt_slug, decision, reason, judged_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_name, dict_name, model, prompt_slug) DO UPDATE SET
			decision = excluded.decision,
			reason = excluded.reason,
			judged_at = excluded.judged_at,
			expires_at = excluded.expires_at
	`, key.QueryName, key.DictName, key.Model, key.PromptSlug, string(judgment.Decision), judgment.Reason, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached judgment: %w", err)
	}
	return nil
}

// PurgeExpiredJudgments deletes expired cache rows and reports how many
// were removed.
func (s *Store) PurgeExpiredJudgments(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM judgment_cache WHERE expires_at <= ?`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge judgment cache: %w", err)
	}
	return res.RowsAffected()
}
