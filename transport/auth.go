package transport

import (
	"net/http"
)

// Bearer authentication header constants.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer"
)

// TokenSource provides the current bearer token, or the empty string when no
// credential is held. credential.Store satisfies this interface.
type TokenSource interface {
	Token() string
}

// AuthTransport attaches the current bearer token to outgoing requests. When
// the token source holds no token the request passes through unchanged. The
// transport never inspects responses and never swallows downstream errors.
type AuthTransport struct {
	source TokenSource
	next   http.RoundTripper
}

// NewAuthTransport creates an auth transport over next. A nil next defaults
// to http.DefaultTransport.
func NewAuthTransport(source TokenSource, next http.RoundTripper) (*AuthTransport, error) {
	if source == nil {
		return nil, ErrNilTokenSource
	}

	if next == nil {
		next = http.DefaultTransport
	}

	return &AuthTransport{
		source: source,
		next:   next,
	}, nil
}

// Auth returns a Middleware attaching bearer tokens from source. It panics
// on a nil source; use NewAuthTransport for an error-returning constructor.
func Auth(source TokenSource) Middleware {
	if source == nil {
		panic(ErrNilTokenSource)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		t, _ := NewAuthTransport(source, next)
		return t
	}
}

// RoundTrip implements http.RoundTripper. The original request is never
// mutated; a clone carries the Authorization header.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.source.Token()
	if token == "" {
		return t.next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set(AuthorizationHeader, BearerPrefix+" "+token)

	return t.next.RoundTrip(clone)
}
