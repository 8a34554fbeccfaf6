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

func testConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             name,
		ErrorThreshold:   0.5,
		VolumeThreshold:  4,
		SleepWindow:      30 * time.Millisecond,
		HalfOpenRequests: 2,
		SuccessThreshold: 0.5,
		WindowSize:       time.Second,
		BucketCount:      10,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Metrics:          &noopMetrics{},
	}
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t1"))
	require.NoError(t, err)
	assert.Equal(t, "closed", cb.GetState())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreakerTripsOnErrorRate(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t2"))
	require.NoError(t, err)

	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, "open", cb.GetState())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreakerBelowVolumeThresholdStaysClosed(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t3"))
	require.NoError(t, err)

	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cfg := testConfig("t4")
	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, "open", cb.GetState())

	time.Sleep(cfg.SleepWindow + 10*time.Millisecond)
	assert.True(t, cb.CanExecute())
	assert.Equal(t, "half-open", cb.GetState())

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, "closed", cb.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cfg := testConfig("t5")
	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	time.Sleep(cfg.SleepWindow + 10*time.Millisecond)
	require.True(t, cb.CanExecute())
	require.Equal(t, "half-open", cb.GetState())

	cb.RecordFailure()
	assert.Equal(t, "open", cb.GetState())
}

func TestCircuitBreakerExecuteWrapsFn(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t6"))
	require.NoError(t, err)

	callErr := errors.New("endpoint unreachable")
	err = cb.Execute(context.Background(), func() error { return callErr })
	assert.ErrorIs(t, err, callErr)
}

func TestCircuitBreakerExecuteRejectsWhenOpen(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t7"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, "open", cb.GetState())

	err = cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, core.ErrCircuitBreakerOpen)
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t8"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, "open", cb.GetState())

	cb.Reset()
	assert.Equal(t, "closed", cb.GetState())
	assert.True(t, cb.CanExecute())
}

func TestDefaultErrorClassifierIgnoresConfigAndContentErrors(t *testing.T) {
	assert.False(t, DefaultErrorClassifier(core.ErrInvalidConfiguration))
	assert.False(t, DefaultErrorClassifier(core.ErrNoContent))
	assert.False(t, DefaultErrorClassifier(context.Canceled))
	assert.True(t, DefaultErrorClassifier(core.ErrTransientNetwork))
}

func TestCircuitBreakerStateChangeListener(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig("t9"))
	require.NoError(t, err)

	var gotFrom, gotTo CircuitState
	cb.AddStateChangeListener(func(name string, from, to CircuitState) {
		gotFrom, gotTo = from, to
	})

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}

	assert.Equal(t, StateClosed, gotFrom)
	assert.Equal(t, StateOpen, gotTo)
}

func TestSlidingWindowErrorRate(t *testing.T) {
	sw := NewSlidingWindow(time.Second, 10, false)
	sw.RecordSuccess()
	sw.RecordSuccess()
	sw.RecordFailure()

	assert.InDelta(t, 1.0/3.0, sw.GetErrorRate(), 0.01)
	assert.Equal(t, uint64(3), sw.GetTotal())
}

func TestCircuitBreakerConfigValidation(t *testing.T) {
	_, err := NewCircuitBreaker(&CircuitBreakerConfig{Name: ""})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = NewCircuitBreaker(&CircuitBreakerConfig{Name: "x", ErrorThreshold: 2})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}
