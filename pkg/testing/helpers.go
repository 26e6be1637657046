package testing

import (
	"context"
	"testing"
	"time"
)

const pollInterval = 10 * time.Millisecond

// AssertEventually polls condition until it holds, failing the test after timeout.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for !condition() {
		select {
		case <-timer.C:
			t.Fatalf("condition not met after %s: %s", timeout, message)
		case <-tick.C:
		}
	}
}

// CreateTestContext returns a context cancelled after timeout.
func CreateTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// SkipIfShort skips integration tests under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped with -short")
	}
}
