package errors

import (
	"context"
	"errors"
	"time"
)

// Backoff is an exponential retry schedule. Only errors marked Retryable
// are retried.
type Backoff struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff makes four attempts, waiting 100ms, 200ms and 400ms between them.
var DefaultBackoff = Backoff{
	Attempts:   4,
	Initial:    100 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// WithRetry runs fn under DefaultBackoff.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Retry(ctx, fn)
}

// Retry calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx ends.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

// Delay returns the wait after the given failed attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.Initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * b.Multiplier)
		if b.Max > 0 && delay >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
