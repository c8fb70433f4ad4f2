package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(conditions ...Condition) *Policy {
	return &Policy{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryOn:        conditions,
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	p := &Policy{
		MaxRetries:     -1,
		InitialBackoff: -time.Second,
		MaxBackoff:     0,
		BackoffFactor:  0,
		Jitter:         2.0,
	}
	p.Validate()

	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, DefaultInitialBackoff, p.InitialBackoff)
	assert.Equal(t, DefaultMaxBackoff, p.MaxBackoff)
	assert.Equal(t, DefaultBackoffFactor, p.BackoffFactor)
	assert.Equal(t, DefaultJitter, p.Jitter)
}

func TestExecuteWithStatusCode_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	code, err := fastPolicy(RetryableStatusCodes()).ExecuteWithStatusCode(
		context.Background(),
		func() (int, error) {
			calls++
			return 200, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithStatusCode_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	code, err := fastPolicy(RetryableStatusCodes()).ExecuteWithStatusCode(
		context.Background(),
		func() (int, error) {
			calls++
			if calls < 3 {
				return 503, nil
			}
			return 200, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithStatusCode_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	calls := 0
	code, err := fastPolicy(RetryableStatusCodes()).ExecuteWithStatusCode(
		context.Background(),
		func() (int, error) {
			calls++
			return 400, nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 400, code)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithStatusCode_ErrorPropagatedUnchanged(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")

	calls := 0
	_, err := fastPolicy(RetryOnErrors(sentinel)).ExecuteWithStatusCode(
		context.Background(),
		func() (int, error) {
			calls++
			return 0, sentinel
		},
	)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 4, calls) // initial attempt plus MaxRetries
}

func TestExecuteWithStatusCode_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastPolicy(RetryableStatusCodes()).ExecuteWithStatusCode(ctx, func() (int, error) {
		t.Fatal("fn should not run after cancellation")
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoff_Next(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 0)

	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 200*time.Millisecond, b.Next(1))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))

	// Capped at the maximum.
	assert.Equal(t, time.Second, b.Next(10))

	// Negative attempts are clamped.
	assert.Equal(t, 100*time.Millisecond, b.Next(-1))
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	t.Parallel()

	b := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 0.25)

	for i := 0; i < 100; i++ {
		d := b.Next(0)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

func TestConstantBackoff_Next(t *testing.T) {
	t.Parallel()

	b := NewConstantBackoff(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, b.Next(0))
	assert.Equal(t, 50*time.Millisecond, b.Next(7))
}

func TestConditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		condition  Condition
		err        error
		statusCode int
		want       bool
	}{
		{
			name:       "5xx condition matches 503",
			condition:  RetryOn5xx(),
			statusCode: 503,
			want:       true,
		},
		{
			name:       "5xx condition ignores 404",
			condition:  RetryOn5xx(),
			statusCode: 404,
			want:       false,
		},
		{
			name:       "status code condition matches configured code",
			condition:  RetryOnStatusCodes(429),
			statusCode: 429,
			want:       true,
		},
		{
			name:       "retryable status codes include 408",
			condition:  RetryableStatusCodes(),
			statusCode: 408,
			want:       true,
		},
		{
			name:      "network condition matches op error",
			condition: RetryOnNetworkErrors(),
			err:       &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			want:      true,
		},
		{
			name:      "network condition matches EOF",
			condition: RetryOnNetworkErrors(),
			err:       io.EOF,
			want:      true,
		},
		{
			name:      "network condition ignores nil error",
			condition: RetryOnNetworkErrors(),
			want:      false,
		},
		{
			name:      "network condition ignores plain error",
			condition: RetryOnNetworkErrors(),
			err:       errors.New("not network"),
			want:      false,
		},
		{
			name:      "error type condition matches wrapped error",
			condition: RetryOnErrors(io.ErrUnexpectedEOF),
			err:       &url.Error{Op: "Get", URL: "http://x", Err: io.ErrUnexpectedEOF},
			want:      true,
		},
		{
			name:      "timeout condition ignores non-timeout",
			condition: RetryOnTimeout(),
			err:       errors.New("nope"),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.condition.ShouldRetry(tt.err, tt.statusCode))
		})
	}
}
