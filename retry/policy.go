// Package retry provides exponential backoff retry functionality for
// outbound HTTP calls.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Default retry policy values.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultBackoffFactor  = 2.0
	DefaultJitter         = 0.1
)

// Policy defines the retry policy configuration.
type Policy struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0 to 1.0).
	Jitter float64

	// RetryOn is a list of conditions that trigger a retry.
	RetryOn []Condition

	// Logger for logging retry attempts.
	Logger *zap.Logger
}

// Condition defines when a retry should be attempted.
type Condition interface {
	// ShouldRetry returns true if the call should be retried. statusCode is
	// zero when the call failed before a response was received.
	ShouldRetry(err error, statusCode int) bool
}

// DefaultPolicy returns a Policy with default values.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		BackoffFactor:  DefaultBackoffFactor,
		Jitter:         DefaultJitter,
		RetryOn: []Condition{
			RetryOnNetworkErrors(),
			RetryableStatusCodes(),
		},
	}
}

// Validate validates and normalizes the policy.
func (p *Policy) Validate() {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = DefaultBackoffFactor
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = DefaultJitter
	}
}

// shouldRetry checks all conditions to determine if a retry is warranted.
func (p *Policy) shouldRetry(err error, statusCode int) bool {
	for _, condition := range p.RetryOn {
		if condition.ShouldRetry(err, statusCode) {
			return true
		}
	}
	return false
}

// ExecuteWithStatusCode executes fn with retry logic, considering HTTP status
// codes. fn reports the status code of the attempt, or zero when no response
// was received. The last error (or nil on success) is returned unchanged.
func (p *Policy) ExecuteWithStatusCode(
	ctx context.Context,
	fn func() (int, error),
) (statusCode int, err error) {
	p.Validate()

	backoff := NewExponentialBackoff(p.InitialBackoff, p.MaxBackoff, p.BackoffFactor, p.Jitter)

	var lastErr error
	var lastStatusCode int

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return lastStatusCode, ctx.Err()
		default:
		}

		lastStatusCode, lastErr = fn()

		if !p.shouldRetry(lastErr, lastStatusCode) {
			return lastStatusCode, lastErr
		}

		if attempt == p.MaxRetries {
			break
		}

		waitDuration := backoff.Next(attempt)
		recordRetry()

		if p.Logger != nil {
			p.Logger.Debug("retrying request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", p.MaxRetries),
				zap.Int("status_code", lastStatusCode),
				zap.Duration("wait", waitDuration),
				zap.Error(lastErr),
			)
		}

		select {
		case <-ctx.Done():
			return lastStatusCode, ctx.Err()
		case <-time.After(waitDuration):
		}
	}

	return lastStatusCode, lastErr
}
