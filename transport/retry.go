package transport

import (
	"io"
	"net/http"

	"github.com/vyrodovalexey/avhttpc/retry"
)

// RetryTransport retries failed outgoing requests according to a retry
// policy. Only requests that can be replayed safely are retried: idempotent
// methods, and only when the body (if any) can be rewound via GetBody.
// Non-replayable requests pass through with a single attempt.
type RetryTransport struct {
	policy *retry.Policy
	next   http.RoundTripper
}

// NewRetryTransport creates a retry transport over next. A nil policy uses
// retry.DefaultPolicy; a nil next defaults to http.DefaultTransport.
func NewRetryTransport(policy *retry.Policy, next http.RoundTripper) *RetryTransport {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}

	if next == nil {
		next = http.DefaultTransport
	}

	return &RetryTransport{
		policy: policy,
		next:   next,
	}
}

// Retry returns a Middleware applying the given policy.
func Retry(policy *retry.Policy) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewRetryTransport(policy, next)
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !replayable(req) {
		return t.next.RoundTrip(req)
	}

	var resp *http.Response

	_, err := t.policy.ExecuteWithStatusCode(req.Context(), func() (int, error) {
		// Drain the response from the previous attempt so its connection
		// can be reused.
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}

		attempt := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return 0, bodyErr
			}
			attempt.Body = body
		}

		r, rtErr := t.next.RoundTrip(attempt)
		if rtErr != nil {
			return 0, rtErr
		}

		resp = r
		return r.StatusCode, nil
	})
	if err != nil {
		// The context may have been cancelled during backoff with a
		// retryable response still held; release its connection.
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return nil, err
	}

	return resp, nil
}

// replayable reports whether a request can be safely retried.
func replayable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
	default:
		return false
	}

	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
