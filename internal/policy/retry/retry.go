// Package retry runs bounded retries with fixed or linearly growing delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff returns the delay to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Fixed waits the same delay after every failure.
func Fixed(delay time.Duration) Backoff {
	return func(int) time.Duration { return delay }
}

// Linear waits base multiplied by the attempt number.
func Linear(base time.Duration) Backoff {
	return func(attempt int) time.Duration { return base * time.Duration(attempt) }
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Sleep       Sleeper
}

// Do calls fn until it succeeds, the attempts run out or ctx is cancelled.
// It returns the last value, the number of attempts made and the last error.
// Context errors from fn are not retried.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var (
		value T
		err   error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err = fn(ctx, attempt)
		if err == nil {
			return value, attempt, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return value, attempt, err
		}
		if attempt == attempts {
			break
		}
		if p.Backoff != nil {
			if serr := sleep(ctx, p.Backoff(attempt)); serr != nil {
				return value, attempt, fmt.Errorf("retry aborted after attempt %d: %w", attempt, serr)
			}
		}
	}
	return value, attempts, err
}

// Sleep waits on a timer, returning early when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
