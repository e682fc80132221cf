// Package retry runs calls to external models with a bounded number of attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidAttempts is returned when a Policy allows no attempt.
var ErrInvalidAttempts = errors.New("retry: attempts must be positive")

// Policy is a fixed-delay retry policy.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Timeout bounds each attempt. Zero leaves only the caller's deadline.
	Timeout time.Duration
}

// Do calls op until it succeeds, attempts are exhausted or ctx is done.
// It returns the error of the last attempt, or ctx.Err() when cancelled.
func Do(ctx context.Context, p Policy, logger *zap.Logger, op func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		return ErrInvalidAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = runAttempt(ctx, p.Timeout, op)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("Operation succeeded after retry", zap.Int("attempt", attempt))
			}
			return nil
		}

		logger.Warn("Attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.Attempts),
			zap.Error(lastErr))

		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func runAttempt(ctx context.Context, timeout time.Duration, op func(ctx context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
