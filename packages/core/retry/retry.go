// Package retry runs a unit of work up to a bounded number of attempts with
// linear or exponential backoff between failures.
package retry

import (
	"context"
	"time"
)

// Backoff selects how the delay between attempts grows.
type Backoff string

const (
	// Linear waits attempt × BaseDelay between attempts.
	Linear Backoff = "linear"
	// Exponential waits 2^(attempt-1) × BaseDelay between attempts.
	Exponential Backoff = "exponential"
)

const (
	// DefaultBaseDelay is the delay unit used when a policy does not set one.
	DefaultBaseDelay = 1 * time.Second
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	BaseDelay   time.Duration
}

// Normalize fills zero fields with defaults so a zero Policy means
// "run once, no backoff".
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == "" {
		p.Backoff = Linear
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based), i.e. the
// delay observed before attempt n+1 runs.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch p.Backoff {
	case Exponential:
		return p.BaseDelay << (attempt - 1)
	default:
		return time.Duration(attempt) * p.BaseDelay
	}
}

// RetryIf decides whether another attempt should run. It receives the error
// from the attempt that just failed and the number of the attempt that is
// about to run, so callers can decline based on either.
type RetryIf func(err error, nextAttempt int) bool

// Do invokes fn until it succeeds, the policy's attempt budget is exhausted,
// the predicate declines, or ctx is cancelled. fn receives the 1-based
// attempt number. The wait between attempts observes ctx and aborts
// immediately when it fires; cancellation fails with the context's cause
// rather than the work's last error. A nil predicate always retries.
func Do[T any](ctx context.Context, p Policy, shouldRetry RetryIf, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	p = p.Normalize()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, context.Cause(ctx)
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if shouldRetry != nil && !shouldRetry(err, attempt+1) {
			break
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, context.Cause(ctx)
		case <-timer.C:
		}
	}

	return zero, lastErr
}
