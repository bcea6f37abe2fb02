// Package retry wraps provider calls in bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxAttempts  = 3
	initialDelay = 2 * time.Second
	multiplier   = 2.0
)

// Do runs op up to three times with exponential backoff (2s base, doubling).
// The transient classifier decides whether a failure is worth retrying;
// non-transient errors are returned immediately. A nil classifier treats
// every error as transient. Context cancellation aborts the wait between
// attempts.
func Do(ctx context.Context, op func() error, transient func(error) bool) error {
	return do(ctx, op, transient, initialDelay)
}

func do(ctx context.Context, op func() error, transient func(error) bool, delay time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.Multiplier = multiplier
	b.RandomizationFactor = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if transient != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, maxAttempts-1), ctx))
}
