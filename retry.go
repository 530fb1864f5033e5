package main

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy controls how Retry repeats a failing operation.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	// Zero means retry until success or context cancellation.
	MaxAttempts int
	Delay       time.Duration

	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable retries every error.
	Retryable func(error) bool

	// OnRetry is called after a failed attempt, before sleeping.
	OnRetry func(attempt int, err error)

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Retry calls operation until it succeeds, returns a non-retryable error,
// exhausts the policy or ctx is done.
func Retry[T any](ctx context.Context, policy RetryPolicy, operation func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := operation(ctx, attempt)
		if err == nil {
			return value, nil
		}

		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		if err := sleep(ctx, policy.Delay); err != nil {
			return zero, err
		}
	}
}

// sleepContext sleeps for d or until ctx is done.
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
