// Package transport provides composable http.RoundTripper middlewares for
// outbound HTTP calls.
//
// # Middlewares
//
//   - AuthTransport: attaches the current bearer token as an
//     Authorization header when one is held.
//   - TracingTransport: wraps each call in an OpenTelemetry client span
//     with method/URL/header attributes and W3C context propagation.
//   - RetryTransport: retries replayable requests with exponential backoff.
//   - BreakerTransport: circuit breaking with 5xx responses counted as
//     failures.
//   - MetricsTransport: Prometheus request counters, durations, and
//     in-flight gauge.
//
// # Usage
//
// Middlewares follow the standard round tripper wrapping pattern and
// compose with Chain, outermost first:
//
//	rt := transport.Chain(nil,
//	    transport.Retry(policy),
//	    transport.Metrics(),
//	    transport.Auth(store),
//	)
//	client := &http.Client{Transport: rt}
//
// Fallible middlewares (tracing, auth) also expose error-returning
// constructors for eager configuration validation.
package transport
