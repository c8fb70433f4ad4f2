package transport

import "net/http"

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain composes middlewares around a base round tripper. The first
// middleware is the outermost: Chain(base, m1, m2) dispatches through
// m1 -> m2 -> base. A nil base defaults to http.DefaultTransport.
func Chain(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	rt := base
	if rt == nil {
		rt = http.DefaultTransport
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}

	return rt
}
