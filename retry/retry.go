// Package retry provides the per-stage backoff executor, the
// recoverable/terminal failure classifier, and the message-level
// attempt tracker.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Do invokes op up to maxAttempts times total, sleeping
// baseDelay * 2^attempt between failures. Growth is pure exponential,
// no jitter. The final error is returned unchanged so callers can
// classify it by its original message text.
func Do(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = baseDelay << 16
	bo.MaxElapsedTime = 0

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxAttempts-1)), ctx))
}
