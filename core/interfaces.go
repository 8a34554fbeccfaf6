package core

import (
	"context"
	"sync"
)

// Logger is the minimal structured logging interface consumed by every
// package in this repository. The harvester never logs through the
// standard library logger directly; every component takes a Logger.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger lets a package stamp a fixed "component" field
// (e.g. "harvester/worker", "harvester/cycle") onto every log line it
// emits, without threading that string through every call site.
//
// Component naming convention:
//   - "harvester/cycle"      - Cycle state machine
//   - "harvester/worker"     - Worker pool
//   - "harvester/scenario"   - Scenario engine
//   - "harvester/oai"        - OAI-PMH client
//   - "harvester/action"     - Action pipeline
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Telemetry is the optional tracing/metrics facade a component may hold
// without depending on the concrete OpenTelemetry types directly.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span represents a telemetry span.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpLogger discards everything. Used as the zero-value default so
// callers never need a nil check before logging.
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

func (n *NoOpLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
}
func (n *NoOpLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
}
func (n *NoOpLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
}
func (n *NoOpLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
}

// NoOpTelemetry discards spans and metrics.
type NoOpTelemetry struct{}

func (n *NoOpTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &NoOpSpan{}
}

func (n *NoOpTelemetry) RecordMetric(name string, value float64, labels map[string]string) {}

// NoOpSpan discards attributes and errors.
type NoOpSpan struct{}

func (n *NoOpSpan) End()                                       {}
func (n *NoOpSpan) SetAttribute(key string, value interface{}) {}
func (n *NoOpSpan) RecordError(err error)                      {}

// MetricsRegistry lets the telemetry package register itself with core
// without a circular import: core-level code (the logger) can emit
// metrics through this interface without
// depending on OpenTelemetry types.
type MetricsRegistry interface {
	Counter(name string, labels ...string)
	Gauge(name string, value float64, labels ...string)
	Histogram(name string, value float64, labels ...string)
	EmitWithContext(ctx context.Context, name string, value float64, labels ...string)
}

var (
	globalMetricsRegistry MetricsRegistry
	registryMu            sync.RWMutex
)

// SetMetricsRegistry publishes the process-wide metrics sink;
// telemetry.Shutdown clears it by passing nil.
func SetMetricsRegistry(registry MetricsRegistry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	globalMetricsRegistry = registry
}

// GetGlobalMetricsRegistry returns the registered MetricsRegistry, or nil
// if none has been set (e.g. in unit tests).
func GetGlobalMetricsRegistry() MetricsRegistry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return globalMetricsRegistry
}
