package transport

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTransport_PassesThroughSuccess(t *testing.T) {
	t.Parallel()

	bt := NewBreakerTransport(BreakerConfig{Name: "ok", Threshold: 2, Timeout: time.Minute},
		roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusOK), nil
		}))

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := bt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, bt.State())
}

func TestBreakerTransport_ServerErrorReturnedToCaller(t *testing.T) {
	t.Parallel()

	bt := NewBreakerTransport(BreakerConfig{Name: "srv", Threshold: 100, Timeout: time.Minute},
		roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusBadGateway), nil
		}))

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	// A 5xx counts as a breaker failure but the response still reaches the
	// caller without an error.
	resp, err := bt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBreakerTransport_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("dial failed")

	var downstreamCalls int
	bt := NewBreakerTransport(BreakerConfig{Name: "failing", Threshold: 2, Timeout: time.Minute},
		roundTripFunc(func(req *http.Request) (*http.Response, error) {
			downstreamCalls++
			return nil, sentinel
		}))

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = bt.RoundTrip(req)
	assert.ErrorIs(t, err, sentinel)

	_, err = bt.RoundTrip(req)
	assert.ErrorIs(t, err, sentinel)

	// Breaker is now open; the downstream is no longer reached.
	assert.Equal(t, gobreaker.StateOpen, bt.State())

	_, err = bt.RoundTrip(req)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, downstreamCalls)
}

func TestBreakerTransport_ServerErrorsTripBreaker(t *testing.T) {
	t.Parallel()

	bt := NewBreakerTransport(BreakerConfig{Name: "tripping", Threshold: 2, Timeout: time.Minute},
		roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusInternalServerError), nil
		}))

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, rtErr := bt.RoundTrip(req)
		require.NoError(t, rtErr)
		resp.Body.Close()
	}

	assert.Equal(t, gobreaker.StateOpen, bt.State())

	_, err = bt.RoundTrip(req)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestSafeIntToUint32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), safeIntToUint32(-1))
	assert.Equal(t, uint32(5), safeIntToUint32(5))
	assert.Equal(t, ^uint32(0), safeIntToUint32(int(^uint32(0))+1))
}
