package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryPolicyEventualSuccess(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 0}
	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Do called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryPolicyAllFail(t *testing.T) {
	attempts := 0
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 0}

	err := p.Do(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Do should return error when all attempts fail")
	}
	if attempts != 3 {
		t.Errorf("Do called fn %d times, want 3", attempts)
	}
}

func TestRetryPolicyNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0

	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   0,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}
	err := p.Do(context.Background(), func() error {
		attempts++
		return fatal
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("Do returned %v, want fatal error", err)
	}
	if attempts != 1 {
		t.Errorf("non-retryable error attempted %d times, want 1", attempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil for positive rate")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should not block or fail: %v", err)
	}

	if NewRateLimiter(0) != nil {
		t.Error("NewRateLimiter(0) should return nil (no limiting)")
	}
	var nilRL *RateLimiter
	if err := nilRL.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait returned %v, want nil", err)
	}
}
