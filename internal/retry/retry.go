// Package retry runs idempotent operations with bounded attempts and backoff.
package retry

import (
	"context"
	"time"
)

// Backoff returns the delay before the next attempt, given the 1-based
// number of the attempt that just failed.
type Backoff func(attempt int) time.Duration

// Exponential yields base·2^(attempt-1): base, 2·base, 4·base...
func Exponential(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds a retried operation.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	// Sleep defaults to SleepContext.
	Sleep Sleeper
	// OnRetry, when set, observes every failed attempt that will be retried.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do runs op until it succeeds, MaxAttempts is reached or ctx is done.
// It returns the number of attempts made and the last error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	_, attempts, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	maxAttempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return zero, attempt - 1, lastErr
		}
		v, err := op(ctx)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			return zero, attempt, lastErr
		}
		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, attempt, lastErr
		}
	}
	return zero, maxAttempts, lastErr
}
