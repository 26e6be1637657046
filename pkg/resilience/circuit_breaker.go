// Package resilience guards calls to dependencies with a circuit breaker and
// bounded exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is wrapped into every error returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name string
	// TripAfter consecutive failures open the breaker.
	TripAfter uint32
	// OpenFor is how long the breaker rejects calls before letting a few through.
	OpenFor time.Duration
	// HalfOpenCalls is how many calls may run while half-open.
	HalfOpenCalls uint32
	// ResetAfter clears the failure count while closed. Zero never clears it.
	ResetAfter time.Duration

	// IsFailure decides which errors count against the breaker. Nil counts every error.
	IsFailure func(error) bool
	// OnStateChange is called after every transition, in addition to logging.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker used in front of the store
// and the text recognition provider.
func DefaultCircuitBreakerConfig(name string) *BreakerConfig {
	return &BreakerConfig{
		Name:          name,
		TripAfter:     5,
		OpenFor:       15 * time.Second,
		HalfOpenCalls: 1,
		ResetAfter:    time.Minute,
	}
}

// CircuitBreaker fails fast while a dependency keeps failing.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreaker creates a breaker. A nil logger uses slog.Default.
func NewCircuitBreaker(config *BreakerConfig, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	tripAfter := config.TripAfter
	if tripAfter == 0 {
		tripAfter = 1
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.HalfOpenCalls,
		Interval:    config.ResetAfter,
		Timeout:     config.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
	}
	if isFailure := config.IsFailure; isFailure != nil {
		settings.IsSuccessful = func(err error) bool { return err == nil || !isFailure(err) }
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

// Execute runs fn through the breaker. Rejected calls return an error wrapping ErrCircuitOpen.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.cb.Name(), err)
	}
	return err
}

// StateValue maps a breaker state onto the gauge encoding used by metrics
// (0=closed, 1=half-open, 2=open).
func StateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
