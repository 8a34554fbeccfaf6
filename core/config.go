// Package core provides the ambient runtime configuration, logging, and
// error types shared by every harvester package. It deliberately knows
// nothing about OAI-PMH, providers, or the cycle state machine — those
// live in their own packages and depend on core, never the reverse.
package core

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds ambient runtime configuration: how the process talks to
// itself (logging, tracing) and coarse operational knobs (default
// concurrency, base directory). Domain configuration — providers, action
// sequences, cycle properties — lives in the XML file loaded by the
// config package and is deliberately not part of this struct.
//
// Three-layer priority, lowest to highest:
//  1. DefaultConfig()
//  2. environment variables (LoadFromEnv)
//  3. functional options passed to NewConfig
type Config struct {
	// ServiceName identifies this process in logs and traces.
	ServiceName string `json:"service_name" env:"HARVEST_SERVICE_NAME" default:"oai-harvester"`

	// BaseDir is the root for static-archive inputs and default config paths.
	BaseDir string `json:"base_dir" env:"HARVEST_BASE_DIR"`

	// OutputDir names a root for saved records (<outputRoot>/<provider>/<prefix>/<id>.xml).
	// It is loaded here; no other package reads it.
	OutputDir string `json:"output_dir" env:"HARVEST_OUTPUT_DIR" default:"./output"`

	// DefaultConcurrency bounds the worker pool when the config file omits one.
	DefaultConcurrency int `json:"default_concurrency" env:"HARVEST_CONCURRENCY" default:"4"`

	// DefaultEndpointTimeout is a per-call timeout for providers that omit one.
	// It is loaded and validated here; no other package reads it, and a
	// provider.Provider with no Timeout applies its own built-in default.
	DefaultEndpointTimeout time.Duration `json:"default_endpoint_timeout" env:"HARVEST_ENDPOINT_TIMEOUT" default:"30s"`

	Logging   LoggingConfig   `json:"logging"`
	Telemetry TelemetryConfig `json:"telemetry"`

	logger Logger `json:"-"`
}

// TelemetryConfig configures the OpenTelemetry tracer/meter providers.
type TelemetryConfig struct {
	Enabled      bool   `json:"enabled" env:"HARVEST_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint string `json:"otlp_endpoint" env:"HARVEST_OTLP_ENDPOINT"`
}

// Option mutates a Config during construction.
type Option func(*Config)

// DefaultConfig returns hardcoded defaults, the lowest priority layer.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:            "oai-harvester",
		OutputDir:              "./output",
		DefaultConcurrency:     4,
		DefaultEndpointTimeout: 30 * time.Second,
		Logging:                LoggingConfig{Level: "info", Format: "text"},
	}
}

// WithServiceName overrides the service name.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// WithBaseDir overrides the base directory.
func WithBaseDir(dir string) Option {
	return func(c *Config) { c.BaseDir = dir }
}

// WithOutputDir overrides the save-tree root.
func WithOutputDir(dir string) Option {
	return func(c *Config) { c.OutputDir = dir }
}

// WithConcurrency overrides the default worker pool size.
func WithConcurrency(n int) Option {
	return func(c *Config) { c.DefaultConcurrency = n }
}

// WithLogLevel overrides the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.Logging.Level = level }
}

// WithLogFormat overrides the log format ("text" or "json").
func WithLogFormat(format string) Option {
	return func(c *Config) { c.Logging.Format = format }
}

// WithTelemetry enables OTel export to the given OTLP endpoint.
func WithTelemetry(enabled bool, endpoint string) Option {
	return func(c *Config) {
		c.Telemetry.Enabled = enabled
		c.Telemetry.OTLPEndpoint = endpoint
	}
}

// WithLogger injects a pre-built logger, bypassing NewProductionLogger.
func WithLogger(logger Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// LoadFromEnv overlays environment variables onto c. Called between the
// defaults layer and the functional-options layer.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("HARVEST_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("HARVEST_BASE_DIR"); v != "" {
		c.BaseDir = v
	}
	if v := os.Getenv("HARVEST_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("HARVEST_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: HARVEST_CONCURRENCY=%q: %v", ErrInvalidConfiguration, v, err)
		}
		c.DefaultConcurrency = n
	}
	if v := os.Getenv("HARVEST_ENDPOINT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: HARVEST_ENDPOINT_TIMEOUT=%q: %v", ErrInvalidConfiguration, v, err)
		}
		c.DefaultEndpointTimeout = d
	}
	if v := os.Getenv("HARVEST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HARVEST_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("HARVEST_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HARVEST_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// Validate rejects a Config that would make the rest of the system
// misbehave silently.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service_name is required", ErrMissingConfiguration)
	}
	if c.DefaultConcurrency <= 0 {
		return fmt.Errorf("%w: default_concurrency must be positive, got %d", ErrInvalidConfiguration, c.DefaultConcurrency)
	}
	if c.DefaultEndpointTimeout <= 0 {
		return fmt.Errorf("%w: default_endpoint_timeout must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// Logger returns the configured logger, constructing a zap-backed
// ProductionLogger on first use if none was supplied via WithLogger.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		c.logger = NewProductionLogger(c.Logging, c.ServiceName)
	}
	return c.logger
}

// NewConfig builds a Config by layering defaults, environment variables,
// then functional options, and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
