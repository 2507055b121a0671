package httputil

import (
	"context"
	"errors"
	"time"
)

// MaxRetryDelay caps the backoff between two attempts.
const MaxRetryDelay = 30 * time.Second

// RetryableError marks a transient failure (timeout, connection reset, 5xx)
// that [Retry] should attempt again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// RetryFunc is told about each failed attempt that will be retried, with
// the wait before the next one.
type RetryFunc func(attempt int, err error, wait time.Duration)

// Retry executes fn up to attempts times. The delay doubles after each
// failure up to [MaxRetryDelay]. Errors not wrapped in [RetryableError] are
// returned at once; ctx.Err() is returned if ctx ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return RetryNotify(ctx, attempts, delay, fn, nil)
}

// RetryNotify is [Retry] with a callback before every retry. notify may be nil.
func RetryNotify(ctx context.Context, attempts int, delay time.Duration, fn func() error, notify RetryFunc) error {
	attempts = max(attempts, 1)
	var err error
	for i := 1; ; i++ {
		if err = fn(); err == nil || !IsRetryable(err) || i == attempts {
			return err
		}
		if notify != nil {
			notify(i, err, delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, MaxRetryDelay)
	}
}

// IsRetryable reports whether err is wrapped in a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
