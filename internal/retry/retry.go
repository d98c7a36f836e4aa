// Package retry provides a reusable bounded-retry policy for transient
// failures, mainly network-dependent git operations such as fetching
// remote refs.
package retry

import (
	"context"
	"time"

	mergeqerrors "mergeq.dev/mergeq/internal/errors"
)

// Policy describes a bounded retry: a fixed attempt count and a backoff
// function mapping the (1-based) attempt number to a sleep duration.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// LinearBackoff returns a backoff function that grows linearly:
// base, 2*base, 3*base, ...
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// NewPolicy creates a policy with linearly increasing backoff
func NewPolicy(maxAttempts int, base time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: LinearBackoff(base)}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. When all
// attempts fail, the last error is wrapped in a TransientError carrying the
// operation name and attempt count. Context cancellation stops retrying
// immediately.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return mergeqerrors.NewTransientError(op, attempts, lastErr)
}
