package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"github.com/mikidaniel85/warehouse-pbb/pkg/resilience"
	"github.com/mikidaniel85/warehouse-pbb/pkg/tracing"
)

// tracerScope names the spans around store calls.
const tracerScope = "stock-ledger/store"

// PolicyConfig configures how the application calls the store.
type PolicyConfig struct {
	// Timeout bounds one store call or one whole transaction.
	Timeout time.Duration
	// ReadRetryAttempts bounds attempts of an idempotent read.
	ReadRetryAttempts int
	// ReadRetryMaxDelay caps the backoff between read attempts.
	ReadRetryMaxDelay time.Duration
}

// DefaultPolicyConfig returns the production defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Timeout:           5 * time.Second,
		ReadRetryAttempts: resilience.DefaultRetryAttempts,
		ReadRetryMaxDelay: time.Second,
	}
}

// StorePolicy applies a deadline and a circuit breaker to every store call.
// Reads that fail with ErrStoreUnavailable are retried with backoff. Writes
// are never retried here; a write that timed out may still have been applied.
type StorePolicy struct {
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  *logging.Logger
}

// NewStorePolicy creates a policy. m may be nil.
func NewStorePolicy(cfg PolicyConfig, m *metrics.Metrics, logger *logging.Logger) *StorePolicy {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPolicyConfig().Timeout
	}
	logger = logger.WithComponent("store-policy")

	cbConfig := resilience.DefaultCircuitBreakerConfig("store")
	cbConfig.IsFailure = func(err error) bool { return errors.Is(err, domain.ErrStoreUnavailable) }
	cbConfig.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, resilience.StateValue(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.ReadRetryAttempts > 0 {
		retry.MaxAttempts = cfg.ReadRetryAttempts
	}
	if cfg.ReadRetryMaxDelay > 0 {
		retry.MaxDelay = cfg.ReadRetryMaxDelay
	}
	retry.Retryable = func(err error) bool {
		return errors.Is(err, domain.ErrStoreUnavailable) && !errors.Is(err, resilience.ErrCircuitOpen)
	}

	return &StorePolicy{
		timeout: cfg.Timeout,
		breaker: resilience.NewCircuitBreaker(cbConfig, logger.Logger),
		retry:   retry,
		logger:  logger,
	}
}

// Write runs a mutating call once.
func (p *StorePolicy) Write(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return p.call(ctx, name, fn)
}

// Read runs an idempotent call, retrying while the store is unavailable.
func (p *StorePolicy) Read(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return resilience.Retry(ctx, p.retry,
		func(ctx context.Context) error { return p.call(ctx, name, fn) },
		func(err error, wait time.Duration) {
			p.logger.Warn("Retrying store read", "operation", name, "wait", wait, "error", err)
		},
	)
}

func (p *StorePolicy) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	err := tracing.Traced(ctx, tracerScope, "store."+name, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			err := fn(callCtx)
			if err != nil && callCtx.Err() != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
				err = fmt.Errorf("%s: %w: %w", name, domain.ErrStoreUnavailable, err)
			}
			return err
		})
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%s: %w: %w", name, domain.ErrStoreUnavailable, err)
	}
	return err
}

// read runs fn under p.Read and returns its value.
func read[T any](ctx context.Context, p *StorePolicy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Read(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// write runs fn under p.Write and returns its value.
func write[T any](ctx context.Context, p *StorePolicy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Write(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
