package verify

import (
	"context"
	"time"

	"github.com/namelens/orgmatch/internal/ailink"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 20 * time.Second
)

// RetryPolicy bounds the attempts made for one judgment call.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the delay before the given retry (1 = first retry).
	Backoff func(retry int) time.Duration
	// Retryable reports whether an error is worth another attempt.
	Retryable func(error) bool
	// Hint returns a delay requested by the failed call itself. A non-zero
	// hint replaces Backoff for that attempt.
	Hint func(error) time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries transient judgment failures up to three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ExponentialBackoff(DefaultInitialBackoff, DefaultMaxBackoff),
		Retryable:   ailink.IsTransient,
		Hint:        ailink.RetryAfter,
		Sleep:       sleepContext,
	}
}

// ExponentialBackoff doubles initial for each retry, capped at max.
func ExponentialBackoff(initial, max time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		if retry < 1 {
			retry = 1
		}
		d := initial
		for i := 1; i < retry; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

// Do calls fn until it succeeds, fails permanently or the attempt budget
// is spent. It returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	p = p.withDefaults()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return attempt - 1, err
		}

		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt == p.MaxAttempts || !p.Retryable(err) {
			return attempt, err
		}
		delay := p.Backoff(attempt)
		if p.Hint != nil {
			if hint := p.Hint(err); hint > 0 {
				delay = hint
			}
		}
		if sleepErr := p.Sleep(ctx, delay); sleepErr != nil {
			return attempt, err
		}
	}
	return p.MaxAttempts, err
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff(DefaultInitialBackoff, DefaultMaxBackoff)
	}
	if p.Retryable == nil {
		p.Retryable = ailink.IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
