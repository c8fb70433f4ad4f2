package transport

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTransport_PassesThroughResponse(t *testing.T) {
	t.Parallel()

	mt := NewMetricsTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusCreated), nil
	}))

	req, err := http.NewRequest(http.MethodPost, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := mt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestMetricsTransport_PassesThroughError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	mt := NewMetricsTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, sentinel
	}))

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = mt.RoundTrip(req)
	assert.Same(t, sentinel, err)
}
