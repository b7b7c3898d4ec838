package library

import (
	"context"
	"errors"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// RetryPolicy bounds how upstream calls are retried.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	Backoff     time.Duration // delay before the second attempt, doubled afterwards
}

// DefaultRetryPolicy returns 3 attempts with 500ms exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: defaultMaxAttempts, Backoff: defaultBackoff}
}

// retry runs op until it succeeds, fails permanently, the context ends or the
// attempts are spent. Failures are returned as *UpstreamError.
func (a *Aggregator) retry(ctx context.Context, log *logger.Logger, op string, fn func(context.Context) error) error {
	maxAttempts := a.retryPolicy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := a.retryPolicy.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == maxAttempts {
			break
		}

		log.Warn("retrying upstream call", "op", op, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		a.metrics.UpstreamRetry(op)

		if err := sleepWithContext(ctx, backoff*time.Duration(1<<(attempt-1))); err != nil {
			lastErr = err
			break
		}
	}

	a.metrics.UpstreamFailure(op)
	return &UpstreamError{Op: op, Attempts: attempt, Err: lastErr}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
