package transport

import (
	"errors"
	"fmt"
)

// Common errors for transport construction and operation.
var (
	// ErrNilTokenSource indicates the auth transport was built without a
	// token source.
	ErrNilTokenSource = errors.New("transport: token source is required")

	// ErrHeaderLimitTooSmall indicates the configured header value limit is
	// below the minimum useful length.
	ErrHeaderLimitTooSmall = errors.New("transport: header value limit below minimum")

	// ErrBlankHeaderKey indicates the context propagator asked to inject a
	// header under a blank key.
	ErrBlankHeaderKey = errors.New("transport: propagation header key is blank")
)

// serverStatusError marks a 5xx response as a failure for the circuit
// breaker without discarding the response.
type serverStatusError struct {
	status int
}

// Error implements the error interface.
func (e *serverStatusError) Error() string {
	return fmt.Sprintf("transport: server error status %d", e.status)
}
