package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures exponential backoff for idempotent calls.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// Retryable reports whether an error is worth another attempt. Nil retries nothing.
	Retryable func(error) bool
}

// DefaultRetryAttempts is the attempt budget of DefaultRetryConfig.
const DefaultRetryAttempts = 3

// DefaultRetryConfig retries three times, starting at 50ms and doubling up to one second.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   DefaultRetryAttempts,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	}
}

func (c *RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = c.BackoffFactor
	b.MaxElapsedTime = 0

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the attempts run out.
// onRetry, when non-nil, is called before each sleep.
func Retry(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error, onRetry func(err error, wait time.Duration)) error {
	attempts := 0
	operation := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if config.Retryable == nil || !config.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, wait time.Duration) { onRetry(err, wait) }
	}

	if err := backoff.RetryNotify(operation, config.backOff(ctx), notify); err != nil {
		if attempts >= config.MaxAttempts && config.Retryable != nil && config.Retryable(err) {
			return fmt.Errorf("max retries (%d) exceeded: %w", config.MaxAttempts, err)
		}
		return err
	}
	return nil
}
