package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oai-harvester/harvester/core"
)

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	cfg := &RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2}
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("endpoint busy")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("endpoint down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxAttempts: 10, InitialDelay: 20 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		calls++
		return errors.New("still failing")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryNilConfigUsesDefaults(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), nil, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithCircuitBreakerStopsOnOpenBreaker(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("retry-cb"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, "open", cb.GetState())

	calls := 0
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
	err = RetryWithCircuitBreaker(context.Background(), cfg, cb, func() error {
		calls++
		return nil
	})

	assert.Error(t, err)
	assert.Equal(t, 0, calls, "breaker should reject every attempt without calling fn")
}

func TestRetryWithCircuitBreakerRecordsOutcomes(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("retry-cb-2"))
	require.NoError(t, err)

	calls := 0
	cfg := &RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}
	err = RetryWithCircuitBreaker(context.Background(), cfg, cb, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "closed", cb.GetState())
}
