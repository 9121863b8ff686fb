// Package retry wraps fallible operations with bounded exponential-backoff
// retries and retryable/fatal error classification.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
)

// Retryable reports whether an operation that failed with err is worth
// retrying. Returning false propagates err to the caller unchanged.
type Retryable func(err error) bool

// Config controls the retry loop. The zero value is usable: three attempts,
// 100ms initial delay doubling up to 5s, Always classification, no logging.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Retryable    Retryable
	Logger       *zap.Logger
}

func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Retryable == nil {
		c.Retryable = Always
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Always classifies every error as retryable.
func Always(error) bool { return true }

// Do runs fn under the retry policy described by c.
func Do(ctx context.Context, c Config, fn func() error) error {
	_, err := DoWithResult(ctx, c, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult runs fn until it succeeds, the error is classified fatal,
// the attempt budget is exhausted, or ctx is cancelled. Cancellation is
// honored both before each attempt and during the backoff sleep; a
// cancelled call returns ctx.Err() without further attempts.
func DoWithResult[T any](ctx context.Context, c Config, fn func() (T, error)) (T, error) {
	var zero T
	c.normalize()

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if attempt >= c.MaxAttempts || !c.Retryable(err) {
			return zero, err
		}

		wait := backoff(c.InitialDelay, c.MaxDelay, attempt)
		c.Logger.Warn("operation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff computes min(initial * 2^(attempt-1), max) plus up to 10% jitter.
func backoff(initial, max time.Duration, attempt int) time.Duration {
	d := initial << (attempt - 1)
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int64N(int64(d)/10 + 1))
	return d + jitter
}
