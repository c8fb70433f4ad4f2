package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is the sentinel matched by every validation failure
// reported from Validate. Use errors.Is to test for it.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults applied by ApplyDefaults when the corresponding field is unset.
const (
	DefaultSpanName         = "okhttp-call >>"
	DefaultHeaderValueLimit = 96

	// MinHeaderValueLimit is the smallest accepted header value limit.
	MinHeaderValueLimit = 8

	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultBackoffFactor  = 2.0
	DefaultJitter         = 0.1

	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// ClientConfig is the root configuration for an instrumented HTTP client.
type ClientConfig struct {
	// CredentialCachePath is the file backing the credential store. Required.
	CredentialCachePath string `yaml:"credentialCachePath" json:"credentialCachePath"`

	// SpanName overrides the span name used for outbound request spans.
	SpanName string `yaml:"spanName,omitempty" json:"spanName,omitempty"`

	// HeaderValueLimit caps header values recorded as span attributes.
	// Zero selects the default; values below MinHeaderValueLimit are rejected.
	HeaderValueLimit int `yaml:"headerValueLimit,omitempty" json:"headerValueLimit,omitempty"`

	Retry          *RetryConfig          `yaml:"retry,omitempty" json:"retry,omitempty"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
	Metrics        *MetricsConfig        `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Observability  *ObservabilityConfig  `yaml:"observability,omitempty" json:"observability,omitempty"`
}

// RetryConfig controls retry behavior for outbound requests.
type RetryConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	MaxRetries     int      `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
	BackoffFactor  float64  `yaml:"backoffFactor,omitempty" json:"backoffFactor,omitempty"`
	Jitter         float64  `yaml:"jitter,omitempty" json:"jitter,omitempty"`
}

// CircuitBreakerConfig controls the outbound circuit breaker.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// ObservabilityConfig groups logging and tracing configuration.
type ObservabilityConfig struct {
	Log     *LogConfig     `yaml:"log,omitempty" json:"log,omitempty"`
	Tracing *TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
}

// DefaultConfig returns a ClientConfig with all defaults applied. The
// credential cache path must still be set by the caller.
func DefaultConfig() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their default values.
func (c *ClientConfig) ApplyDefaults() {
	if c.SpanName == "" {
		c.SpanName = DefaultSpanName
	}
	if c.HeaderValueLimit == 0 {
		c.HeaderValueLimit = DefaultHeaderValueLimit
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{Enabled: true}
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = DefaultMaxRetries
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = Duration(DefaultInitialBackoff)
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = Duration(DefaultMaxBackoff)
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = DefaultBackoffFactor
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = DefaultJitter
	}
	if c.CircuitBreaker == nil {
		c.CircuitBreaker = &CircuitBreakerConfig{Enabled: true}
	}
	if c.CircuitBreaker.Threshold == 0 {
		c.CircuitBreaker.Threshold = DefaultBreakerThreshold
	}
	if c.CircuitBreaker.Timeout == 0 {
		c.CircuitBreaker.Timeout = Duration(DefaultBreakerTimeout)
	}
	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{Enabled: true}
	}
	if c.Observability == nil {
		c.Observability = &ObservabilityConfig{}
	}
	if c.Observability.Log == nil {
		c.Observability.Log = &LogConfig{}
	}
	if c.Observability.Tracing == nil {
		c.Observability.Tracing = &TracingConfig{SamplingRate: 1.0}
	}
}

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return fmt.Sprintf("%s: %s", ErrInvalidConfig.Error(), e[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %d errors:\n", ErrInvalidConfig.Error(), len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports ErrInvalidConfig so callers can match with errors.Is.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks the configuration and returns all field errors found.
// Validation assumes defaults have been applied.
func (c *ClientConfig) Validate() error {
	var errs ValidationErrors

	add := func(path, message string) {
		errs = append(errs, ValidationError{Path: path, Message: message})
	}

	if c.CredentialCachePath == "" {
		add("credentialCachePath", "credentialCachePath is required")
	}
	if c.HeaderValueLimit != 0 && c.HeaderValueLimit < MinHeaderValueLimit {
		add("headerValueLimit", fmt.Sprintf("must be at least %d", MinHeaderValueLimit))
	}

	if r := c.Retry; r != nil {
		if r.MaxRetries < 0 {
			add("retry.maxRetries", "must not be negative")
		}
		if r.InitialBackoff < 0 {
			add("retry.initialBackoff", "must not be negative")
		}
		if r.MaxBackoff < 0 {
			add("retry.maxBackoff", "must not be negative")
		}
		if r.BackoffFactor != 0 && r.BackoffFactor < 1 {
			add("retry.backoffFactor", "must be at least 1")
		}
		if r.Jitter < 0 || r.Jitter > 1 {
			add("retry.jitter", "must be between 0 and 1")
		}
	}

	if cb := c.CircuitBreaker; cb != nil {
		if cb.Threshold < 0 {
			add("circuitBreaker.threshold", "must not be negative")
		}
		if cb.Timeout < 0 {
			add("circuitBreaker.timeout", "must not be negative")
		}
	}

	if o := c.Observability; o != nil {
		if l := o.Log; l != nil && l.Level != "" {
			switch strings.ToLower(l.Level) {
			case "debug", "info", "warn", "error":
			default:
				add("observability.log.level", "must be one of debug, info, warn, error")
			}
		}
		if t := o.Tracing; t != nil {
			if t.SamplingRate < 0 || t.SamplingRate > 1 {
				add("observability.tracing.samplingRate", "must be between 0 and 1")
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
