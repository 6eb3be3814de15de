// Package retry runs an operation a bounded number of times, each attempt
// under its own deadline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults for oracle calls.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 90 * time.Second
	DefaultBackoff        = 500 * time.Millisecond
)

// Policy bounds the attempts made by Do.
type Policy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff is the pause between attempts; it doubles after each failure.
	Backoff time.Duration
}

// DefaultPolicy returns the policy used for oracle calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    DefaultMaxAttempts,
		AttemptTimeout: DefaultAttemptTimeout,
		Backoff:        DefaultBackoff,
	}
}

// WithMaxAttempts returns a copy of p with a different attempt bound.
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// Observer is told the outcome of every attempt. err is nil on success.
type Observer func(attempt int, err error)

// Do calls fn until it succeeds or p.MaxAttempts attempts have failed.
// Each attempt gets a context bounded by p.AttemptTimeout. Cancellation of
// ctx stops the loop and returns ctx.Err() wrapped.
func Do[T any](ctx context.Context, p Policy, observe Observer, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := p.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled before attempt %d: %w", attempt, err)
		}

		v, err := runAttempt(ctx, p.AttemptTimeout, attempt, fn)
		if observe != nil {
			observe(attempt, err)
		}
		if err == nil {
			return v, nil
		}
		lastErr = err

		// Parent cancellation is not a failed attempt.
		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry cancelled during attempt %d: %w", attempt, ctx.Err())
		}

		if attempt < attempts && backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
			backoff *= 2
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Cause: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt int, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx, attempt)
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}
