package scorer

import (
	"context"
	"time"

	"github.com/launchsignal/validator-backend/internal/pkg/httpx"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
)

// Policy is the bounded retry wrapping each oracle call. It only re-issues
// calls that failed in transit (timeouts, 5xx, 429); a response that arrived
// but failed validation is final and never retried.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy matches the upstream rate limits we have seen in practice.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts
// run out. Backoff doubles between attempts with jitter; context cancellation
// aborts immediately, including mid-sleep.
func (p Policy) Do(ctx context.Context, log *logger.Logger, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff
	if backoff <= 0 {
		backoff = 1 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !httpx.IsRetryableError(lastErr) || attempt == attempts {
			return lastErr
		}

		sleep := httpx.JitterSleep(backoff)
		if log != nil {
			log.Warn("oracle call retrying",
				"op", op,
				"attempt", attempt,
				"max_attempts", attempts,
				"sleep", sleep.String(),
				"error", lastErr.Error(),
			)
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
	return lastErr
}
