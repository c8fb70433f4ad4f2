package transport

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticToken is a TokenSource returning a fixed token.
type staticToken string

func (s staticToken) Token() string {
	return string(s)
}

func TestAuthTransport_AttachesBearerToken(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	next := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return stubResponse(http.StatusOK), nil
	})

	at, err := NewAuthTransport(staticToken("abc"), next)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := at.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer abc", seen.Header.Get("Authorization"))

	// The original request is never mutated.
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAuthTransport_EmptyTokenPassesThroughUnchanged(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	next := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return stubResponse(http.StatusOK), nil
	})

	at, err := NewAuthTransport(staticToken(""), next)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := at.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Exactly the same request instance, no Authorization header added.
	assert.Same(t, req, seen)
	_, present := seen.Header["Authorization"]
	assert.False(t, present)
}

func TestAuthTransport_OverwritesExistingAuthorization(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	next := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return stubResponse(http.StatusOK), nil
	})

	at, err := NewAuthTransport(staticToken("fresh"), next)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer stale")

	resp, err := at.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{"Bearer fresh"}, seen.Header.Values("Authorization"))
}

func TestAuthTransport_DownstreamErrorPropagatedUnchanged(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("dial failed")
	next := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, sentinel
	})

	at, err := NewAuthTransport(staticToken("abc"), next)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = at.RoundTrip(req)
	assert.Same(t, sentinel, err)
}

func TestNewAuthTransport_NilSource(t *testing.T) {
	t.Parallel()

	_, err := NewAuthTransport(nil, nil)
	assert.ErrorIs(t, err, ErrNilTokenSource)
}

func TestAuth_PanicsOnNilSource(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		Auth(nil)
	})
}
