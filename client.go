package avhttpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vyrodovalexey/avhttpc/config"
	"github.com/vyrodovalexey/avhttpc/credential"
	"github.com/vyrodovalexey/avhttpc/observability"
	"github.com/vyrodovalexey/avhttpc/retry"
	"github.com/vyrodovalexey/avhttpc/transport"
)

// ErrNilConfig is returned by New when no configuration is supplied.
var ErrNilConfig = errors.New("avhttpc: nil config")

// Client bundles an instrumented http.Client with the credential store
// backing its bearer-token middleware.
type Client struct {
	// HTTP is the ready-to-use client with the full middleware chain.
	HTTP *http.Client

	// Store holds the bearer token and user identity attached to requests.
	Store *credential.Store

	logger  observability.Logger
	tracer  *observability.Tracer
	watcher *credential.Watcher
}

type options struct {
	base       http.RoundTripper
	logger     observability.Logger
	timeout    time.Duration
	authFirst  bool
	watchCache bool
}

// Option customizes client construction.
type Option func(*options)

// WithBaseTransport overrides the transport at the bottom of the
// middleware chain. Nil means http.DefaultTransport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout sets the http.Client timeout. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithAuthFirst moves the auth middleware outside tracing, so the
// Authorization header is visible to the tracing middleware and recorded
// (truncated) as a span attribute.
func WithAuthFirst() Option {
	return func(o *options) {
		o.authFirst = true
	}
}

// WithCacheWatcher starts a filesystem watcher on the credential cache so
// externally written tokens are picked up without polling. The watcher
// runs until Close.
func WithCacheWatcher() Option {
	return func(o *options) {
		o.watchCache = true
	}
}

// New builds a Client from the configuration. The middleware chain is,
// outermost first: tracing, retry, circuit breaker, metrics, auth. Disabled
// sections are skipped; WithAuthFirst moves auth to the outside.
func New(cfg *config.ClientConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(logConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	tracer, err := observability.NewTracer(tracerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	store, err := credential.New(cfg.CredentialCachePath,
		credential.WithLogger(logger.Zap()),
		credential.WithTracer(tracer.Tracer()),
	)
	if err != nil {
		return nil, err
	}

	tracing, err := transport.Tracing(transport.TracingConfig{
		SpanName:         cfg.SpanName,
		HeaderValueLimit: cfg.HeaderValueLimit,
		Tracer:           tracer.Tracer(),
		Propagator:       tracer.Propagator(),
	})
	if err != nil {
		return nil, err
	}

	middlewares := buildChain(cfg, &o, tracing, transport.Auth(store), logger)

	client := &Client{
		HTTP: &http.Client{
			Transport: transport.Chain(o.base, middlewares...),
			Timeout:   o.timeout,
		},
		Store:  store,
		logger: logger,
		tracer: tracer,
	}

	if o.watchCache {
		watcher, err := credential.NewWatcher(store,
			credential.WithWatcherLogger(logger.Zap()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache watcher: %w", err)
		}
		if err := watcher.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to start cache watcher: %w", err)
		}
		client.watcher = watcher
	}

	return client, nil
}

// buildChain assembles the middleware list outermost first.
func buildChain(
	cfg *config.ClientConfig,
	o *options,
	tracing, auth transport.Middleware,
	logger observability.Logger,
) []transport.Middleware {
	var middlewares []transport.Middleware

	if o.authFirst {
		middlewares = append(middlewares, auth)
	}

	middlewares = append(middlewares, tracing)

	if cfg.Retry != nil && cfg.Retry.Enabled {
		middlewares = append(middlewares, transport.Retry(retryPolicy(cfg.Retry, logger)))
	}

	if cfg.CircuitBreaker != nil && cfg.CircuitBreaker.Enabled {
		middlewares = append(middlewares, transport.Breaker(transport.BreakerConfig{
			Threshold: cfg.CircuitBreaker.Threshold,
			Timeout:   cfg.CircuitBreaker.Timeout.Duration(),
		}, transport.WithBreakerLogger(logger)))
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		middlewares = append(middlewares, transport.Metrics())
	}

	if !o.authFirst {
		middlewares = append(middlewares, auth)
	}

	return middlewares
}

func retryPolicy(cfg *config.RetryConfig, logger observability.Logger) *retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	policy.InitialBackoff = cfg.InitialBackoff.Duration()
	policy.MaxBackoff = cfg.MaxBackoff.Duration()
	policy.BackoffFactor = cfg.BackoffFactor
	policy.Jitter = cfg.Jitter
	policy.Logger = logger.Zap()
	policy.Validate()
	return policy
}

func logConfig(cfg *config.ClientConfig) observability.LogConfig {
	lc := observability.DefaultLogConfig()
	if cfg.Observability == nil || cfg.Observability.Log == nil {
		return lc
	}
	if cfg.Observability.Log.Level != "" {
		lc.Level = cfg.Observability.Log.Level
	}
	if cfg.Observability.Log.Format != "" {
		lc.Format = cfg.Observability.Log.Format
	}
	if cfg.Observability.Log.Output != "" {
		lc.Output = cfg.Observability.Log.Output
	}
	return lc
}

func tracerConfig(cfg *config.ClientConfig) observability.TracerConfig {
	if cfg.Observability == nil || cfg.Observability.Tracing == nil {
		return observability.TracerConfig{}
	}
	t := cfg.Observability.Tracing
	return observability.TracerConfig{
		ServiceName:  t.ServiceName,
		OTLPEndpoint: t.OTLPEndpoint,
		SamplingRate: t.SamplingRate,
		Enabled:      t.Enabled,
	}
}

// Logger returns the client's logger.
func (c *Client) Logger() observability.Logger {
	return c.logger
}

// Close stops the cache watcher, if any, and shuts down the tracer
// provider, flushing pending spans.
func (c *Client) Close(ctx context.Context) error {
	var errs []error

	if c.watcher != nil {
		if err := c.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.tracer != nil {
		if err := c.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
