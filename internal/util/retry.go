package util

import (
	"context"
	"time"
)

// RetryPolicy describes a bounded retry schedule: attempt count, the
// exponential backoff parameters, and a predicate deciding which errors are
// worth another attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration // backoff cap; 0 means uncapped

	// Retryable reports whether another attempt may succeed. A nil
	// predicate retries every error.
	Retryable func(error) bool
}

// Do calls fn up to MaxAttempts times with exponential backoff starting at
// BaseDelay and doubling up to MaxDelay. It returns nil on the first
// successful call. A non-retryable error is returned immediately; otherwise
// the last error is returned after all attempts fail. Context cancellation
// is respected between retries.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	delay := p.BaseDelay

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		// Don't sleep after the last failed attempt.
		if attempt < p.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return err
}
