package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

func testPolicy(timeout time.Duration) *StorePolicy {
	return NewStorePolicy(PolicyConfig{
		Timeout:           timeout,
		ReadRetryAttempts: 3,
		ReadRetryMaxDelay: 20 * time.Millisecond,
	}, nil, logging.NewNop())
}

func TestStorePolicy_TimeoutIsStoreUnavailable(t *testing.T) {
	p := testPolicy(20 * time.Millisecond)

	err := p.Write(context.Background(), "slowWrite", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.HasCode(toAppError(err), errors.CodeTimeout))
}

func TestStorePolicy_ReadsRetryUnavailable(t *testing.T) {
	p := testPolicy(time.Second)
	calls := 0

	err := p.Read(context.Background(), "flakyRead", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("find: %w", domain.ErrStoreUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestStorePolicy_ReadsGiveUp(t *testing.T) {
	p := testPolicy(time.Second)
	calls := 0

	err := p.Read(context.Background(), "deadRead", func(ctx context.Context) error {
		calls++
		return domain.ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 3, calls)
}

func TestStorePolicy_WritesAndLogicalErrorsAreNotRetried(t *testing.T) {
	p := testPolicy(time.Second)

	writes := 0
	err := p.Write(context.Background(), "write", func(ctx context.Context) error {
		writes++
		return domain.ErrStoreUnavailable
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 1, writes)

	reads := 0
	err = p.Read(context.Background(), "read", func(ctx context.Context) error {
		reads++
		return domain.ErrItemNotFound
	})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Equal(t, 1, reads)
}

func TestStorePolicy_BreakerOpensOnRepeatedOutage(t *testing.T) {
	p := testPolicy(time.Second)
	for i := 0; i < 5; i++ {
		_ = p.Write(context.Background(), "write", func(ctx context.Context) error {
			return domain.ErrStoreUnavailable
		})
	}

	called := false
	err := p.Write(context.Background(), "write", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStorePolicy_LogicalErrorsDoNotTripBreaker(t *testing.T) {
	p := testPolicy(time.Second)
	for i := 0; i < 10; i++ {
		_ = p.Write(context.Background(), "write", func(ctx context.Context) error {
			return domain.ErrDuplicateSKU
		})
	}
	assert.NoError(t, p.Write(context.Background(), "write", func(ctx context.Context) error { return nil }))
}
