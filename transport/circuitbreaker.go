package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/avhttpc/observability"
)

// Circuit breaker defaults.
const (
	DefaultBreakerName      = "httpclient"
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// BreakerConfig configures the circuit breaker transport.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// Threshold is the minimum number of requests in a sampling window
	// before the breaker can trip, and the half-open request allowance.
	Threshold int

	// Timeout is the open-state duration and the sampling interval.
	Timeout time.Duration
}

// BreakerTransport protects the downstream with a circuit breaker. Responses
// with 5xx status count as failures; when the breaker is open, calls fail
// fast with gobreaker.ErrOpenState without reaching the network.
type BreakerTransport struct {
	cb     *gobreaker.CircuitBreaker
	logger observability.Logger
	next   http.RoundTripper
}

// BreakerOption is a functional option for configuring the breaker transport.
type BreakerOption func(*BreakerTransport)

// WithBreakerLogger sets the logger for the breaker transport.
func WithBreakerLogger(logger observability.Logger) BreakerOption {
	return func(t *BreakerTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewBreakerTransport creates a circuit breaker transport over next. A nil
// next defaults to http.DefaultTransport.
func NewBreakerTransport(cfg BreakerConfig, next http.RoundTripper, opts ...BreakerOption) *BreakerTransport {
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerName
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreakerTimeout
	}

	if next == nil {
		next = http.DefaultTransport
	}

	t := &BreakerTransport{
		logger: observability.NopLogger(),
		next:   next,
	}

	for _, opt := range opts {
		opt(t)
	}

	threshold := safeIntToUint32(cfg.Threshold)

	t.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: threshold,
		Interval:    cfg.Timeout,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			t.logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			recordBreakerTransition(name, from.String(), to.String())
		},
	})

	return t
}

// Breaker returns a Middleware applying a circuit breaker with the given
// configuration.
func Breaker(cfg BreakerConfig, opts ...BreakerOption) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewBreakerTransport(cfg, next, opts...)
	}
}

// State returns the current state of the circuit breaker.
func (t *BreakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		resp, rtErr := t.next.RoundTrip(req)
		if rtErr != nil {
			return nil, rtErr
		}

		if resp.StatusCode >= 500 {
			// Count the failure but keep the response for the caller.
			return resp, &serverStatusError{status: resp.StatusCode}
		}

		return resp, nil
	})
	if err != nil {
		var srvErr *serverStatusError
		if errors.As(err, &srvErr) {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			t.logger.Warn("circuit breaker rejected request",
				observability.String("url", req.URL.String()),
				observability.String("state", t.cb.State().String()),
			)
		}

		return nil, err
	}

	return result.(*http.Response), nil
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
