package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oai-harvester/harvester/core"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MetricsCollector receives circuit breaker lifecycle events. Satisfied by
// OTelMetricsCollector (metrics_otel.go) and by noopMetrics, which
// DefaultConfig installs.
type MetricsCollector interface {
	RecordSuccess(name string)
	RecordFailure(name string, errorType string)
	RecordStateChange(name string, from, to string)
	RecordRejection(name string)
}

type noopMetrics struct{}

func (n *noopMetrics) RecordSuccess(name string)                      {}
func (n *noopMetrics) RecordFailure(name string, errorType string)    {}
func (n *noopMetrics) RecordStateChange(name string, from, to string) {}
func (n *noopMetrics) RecordRejection(name string)                    {}

// ErrorClassifier decides whether an error should count toward the
// failure threshold. Content and configuration errors should not trip
// the breaker for an otherwise healthy endpoint.
type ErrorClassifier func(error) bool

// DefaultErrorClassifier counts every error except configuration errors,
// context cancellation, and content errors (no content, missing
// identifier), none of which trip the breaker.
func DefaultErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if core.IsConfigurationError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, core.ErrNoContent) || errors.Is(err, core.ErrMissingIdentifier) {
		return false
	}
	return true
}

// CircuitBreakerConfig configures a per-endpoint circuit breaker. One
// breaker guards each provider's OAI endpoint (oaixml.Client), so a
// dead endpoint stops consuming worker-pool capacity mid-cycle.
type CircuitBreakerConfig struct {
	Name string

	// ErrorThreshold is the error rate (0.0-1.0) within WindowSize that trips the breaker.
	ErrorThreshold float64

	// VolumeThreshold is the minimum request count before ErrorThreshold is evaluated.
	VolumeThreshold int

	// SleepWindow is how long the breaker stays open before trying a half-open probe.
	SleepWindow time.Duration

	// HalfOpenRequests bounds concurrent probes while half-open.
	HalfOpenRequests int

	// SuccessThreshold is the half-open success rate needed to close again.
	SuccessThreshold float64

	WindowSize  time.Duration
	BucketCount int

	ErrorClassifier ErrorClassifier
	Logger          core.Logger
	Metrics         MetricsCollector
}

// DefaultConfig returns sensible defaults for harvesting a typical OAI endpoint.
func DefaultConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		ErrorThreshold:   0.5,
		VolumeThreshold:  10,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 3,
		SuccessThreshold: 0.6,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Metrics:          &noopMetrics{},
	}
}

// CircuitBreaker is a sliding-window error-rate breaker, safe for
// concurrent use across a worker pool's goroutines.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	mu              sync.RWMutex
	state           CircuitState
	window          *SlidingWindow
	openedAt        time.Time
	halfOpenInFlight int32

	listeners []func(name string, from, to CircuitState)
}

// NewCircuitBreaker validates config and constructs a CircuitBreaker in StateClosed.
func NewCircuitBreaker(config *CircuitBreakerConfig) (*CircuitBreaker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = &core.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &noopMetrics{}
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultErrorClassifier
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		window: NewSlidingWindow(config.WindowSize, config.BucketCount, false),
	}, nil
}

func (c *CircuitBreakerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: circuit breaker name is required", core.ErrInvalidConfiguration)
	}
	if c.ErrorThreshold <= 0 || c.ErrorThreshold > 1 {
		return fmt.Errorf("%w: error_threshold must be in (0,1]", core.ErrInvalidConfiguration)
	}
	if c.VolumeThreshold <= 0 {
		return fmt.Errorf("%w: volume_threshold must be positive", core.ErrInvalidConfiguration)
	}
	if c.SleepWindow <= 0 {
		return fmt.Errorf("%w: sleep_window must be positive", core.ErrInvalidConfiguration)
	}
	return nil
}

// SetLogger swaps the breaker's logger, stamping the component name if
// the logger supports it.
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if logger == nil {
		cb.config.Logger = &core.NoOpLogger{}
		return
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		cb.config.Logger = cal.WithComponent("resilience/circuit_breaker")
		return
	}
	cb.config.Logger = logger
}

// CanExecute reports whether a caller may attempt a request right now,
// transitioning open->half-open once the sleep window has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.SleepWindow {
			cb.transitionLocked(StateHalfOpen)
			return true
		}
		cb.config.Metrics.RecordRejection(cb.config.Name)
		return false
	case StateHalfOpen:
		if atomic.LoadInt32(&cb.halfOpenInFlight) >= int32(cb.config.HalfOpenRequests) {
			cb.config.Metrics.RecordRejection(cb.config.Name)
			return false
		}
		atomic.AddInt32(&cb.halfOpenInFlight, 1)
		return true
	default:
		return false
	}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.CanExecute() {
		return fmt.Errorf("circuit breaker %q is open: %w", cb.config.Name, core.ErrCircuitBreakerOpen)
	}
	err := fn()
	if cb.config.ErrorClassifier(err) {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// RecordSuccess records a successful call and evaluates half-open recovery.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.window.RecordSuccess()
	cb.config.Metrics.RecordSuccess(cb.config.Name)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		atomic.AddInt32(&cb.halfOpenInFlight, -1)
		_, total := cb.window.GetCounts()
		if total >= uint64(cb.config.HalfOpenRequests) && cb.window.successRate() >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed)
			cb.window.reset()
		}
	}
}

// RecordFailure records a failed call and evaluates whether to trip or re-open.
func (cb *CircuitBreaker) RecordFailure() {
	cb.window.RecordFailure()
	cb.config.Metrics.RecordFailure(cb.config.Name, "error")

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		atomic.AddInt32(&cb.halfOpenInFlight, -1)
		cb.transitionLocked(StateOpen)
	case StateClosed:
		_, total := cb.window.GetCounts()
		if total >= uint64(cb.config.VolumeThreshold) && cb.window.GetErrorRate() >= cb.config.ErrorThreshold {
			cb.transitionLocked(StateOpen)
		}
	}
}

func (cb *CircuitBreaker) transitionLocked(newState CircuitState) {
	old := cb.state
	if old == newState {
		return
	}
	cb.state = newState
	if newState == StateOpen {
		cb.openedAt = time.Now()
	}
	cb.config.Metrics.RecordStateChange(cb.config.Name, old.String(), newState.String())
	cb.config.Logger.Warn("circuit breaker state change", map[string]interface{}{
		"name": cb.config.Name, "from": old.String(), "to": newState.String(),
	})
	for _, l := range cb.listeners {
		l(cb.config.Name, old, newState)
	}
}

// AddStateChangeListener registers a callback invoked on every transition.
func (cb *CircuitBreaker) AddStateChangeListener(listener func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listeners = append(cb.listeners, listener)
}

// GetState returns the breaker's current state as a string.
func (cb *CircuitBreaker) GetState() string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state.String()
}

// Reset forces the breaker back to StateClosed and clears its window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.window.reset()
	atomic.StoreInt32(&cb.halfOpenInFlight, 0)
}

// bucket is one time slot of the sliding window.
type bucket struct {
	success, failure uint64
	timestamp        time.Time
}

// SlidingWindow tracks success/failure counts over a rolling time window
// using fixed-size time buckets, rotating out stale buckets as time passes.
type SlidingWindow struct {
	mu         sync.Mutex
	buckets    []bucket
	windowSize time.Duration
	bucketSize time.Duration
	monotonic  bool
	logger     core.Logger
}

// NewSlidingWindow constructs a window of bucketCount buckets spanning windowSize.
func NewSlidingWindow(windowSize time.Duration, bucketCount int, monotonic bool) *SlidingWindow {
	if bucketCount <= 0 {
		bucketCount = 10
	}
	return &SlidingWindow{
		buckets:    make([]bucket, bucketCount),
		windowSize: windowSize,
		bucketSize: windowSize / time.Duration(bucketCount),
		monotonic:  monotonic,
		logger:     &core.NoOpLogger{},
	}
}

func (sw *SlidingWindow) currentBucket() *bucket {
	now := time.Now()
	idx := int(now.UnixNano()/int64(sw.bucketSize)) % len(sw.buckets)
	b := &sw.buckets[idx]
	if now.Sub(b.timestamp) >= sw.windowSize {
		b.success, b.failure = 0, 0
	}
	b.timestamp = now
	return b
}

// RecordSuccess increments the current bucket's success counter.
func (sw *SlidingWindow) RecordSuccess() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.currentBucket().success++
}

// RecordFailure increments the current bucket's failure counter.
func (sw *SlidingWindow) RecordFailure() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.currentBucket().failure++
}

// GetCounts sums success/failure across all non-stale buckets.
func (sw *SlidingWindow) GetCounts() (success, failure uint64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := time.Now()
	for _, b := range sw.buckets {
		if now.Sub(b.timestamp) < sw.windowSize {
			success += b.success
			failure += b.failure
		}
	}
	return
}

// GetErrorRate returns failure/(success+failure), or 0 with no traffic.
func (sw *SlidingWindow) GetErrorRate() float64 {
	s, f := sw.GetCounts()
	total := s + f
	if total == 0 {
		return 0
	}
	return float64(f) / float64(total)
}

func (sw *SlidingWindow) successRate() float64 {
	return 1 - sw.GetErrorRate()
}

// GetTotal returns the combined success+failure count in the window.
func (sw *SlidingWindow) GetTotal() uint64 {
	s, f := sw.GetCounts()
	return s + f
}

func (sw *SlidingWindow) reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	for i := range sw.buckets {
		sw.buckets[i] = bucket{}
	}
}
