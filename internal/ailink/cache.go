package ailink

import (
	"context"
	"strings"
	"time"
)

// CacheKey identifies a cached judgment.
type CacheKey struct {
	QueryName  string
	DictName   string
	Model      string
	PromptSlug string
}

// Cache stores judgments between runs. GetJudgment returns nil, nil on a
// miss.
type Cache interface {
	GetJudgment(ctx context.Context, key CacheKey) (*Judgment, error)
	PutJudgment(ctx context.Context, key CacheKey, judgment *Judgment, ttl time.Duration) error
}

// CachedJudge consults Cache before delegating to Next. Only CORRECT and
// INCORRECT verdicts are stored; failures are never cached.
type CachedJudge struct {
	Next       Judge
	Cache      Cache
	TTL        time.Duration
	Model      string
	PromptSlug string
}

// Judge implements Judge.
func (c *CachedJudge) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	if c.Cache == nil || c.TTL <= 0 {
		return c.Next.Judge(ctx, req)
	}
	key := CacheKey{
		QueryName:  strings.TrimSpace(req.QueryName),
		DictName:   strings.TrimSpace(req.DictName),
		Model:      c.Model,
		PromptSlug: c.PromptSlug,
	}
	if cached, err := c.Cache.GetJudgment(ctx, key); err == nil && cached != nil {
		return cached, nil
	}

	judgment, err := c.Next.Judge(ctx, req)
	if err != nil {
		return nil, err
	}
	if judgment.Decision == DecisionCorrect || judgment.Decision == DecisionIncorrect {
		_ = c.Cache.PutJudgment(ctx, key, judgment, c.TTL)
	}
	return judgment, nil
}
