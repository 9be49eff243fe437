// internal/webhook/retry.go
package webhook

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides how many times a delivery is attempted
type RetryPolicy interface {
	Do(ctx context.Context, attempt func() error) error
}

// NoRetry makes exactly one attempt
type NoRetry struct{}

func (NoRetry) Do(_ context.Context, attempt func() error) error {
	return attempt()
}

// BackoffRetry retries retryable delivery errors with exponential backoff.
// Other errors end the delivery at once.
type BackoffRetry struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (r BackoffRetry) Do(ctx context.Context, attempt func() error) error {
	bo := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		bo.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		bo.MaxInterval = r.MaxInterval
	}

	tries := r.MaxTries
	if tries == 0 {
		tries = 1
	}

	operation := func() (struct{}, error) {
		err := attempt()
		if err != nil && !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
	return err
}
