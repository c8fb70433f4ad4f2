package credential

import (
	"errors"
	"fmt"
)

// Common errors for credential store operations.
var (
	// ErrInvalidPath indicates the cache path points at something that is
	// not a regular file.
	ErrInvalidPath = errors.New("credential: invalid cache path")

	// ErrCorruptState indicates the cache file exists but cannot be parsed
	// into a credential.
	ErrCorruptState = errors.New("credential: corrupt state file")

	// ErrInvalidToken indicates the supplied token is empty or carries
	// leading/trailing whitespace.
	ErrInvalidToken = errors.New("credential: invalid token")

	// ErrMissingUserID indicates the user identifier is absent.
	ErrMissingUserID = errors.New("credential: user id is required")

	// ErrPersistence indicates a filesystem read or write failed. In-memory
	// state remains authoritative when persistence fails.
	ErrPersistence = errors.New("credential: persistence failure")
)

// StoreError represents a credential store error with operation context.
type StoreError struct {
	Op   string // Operation that failed (new, load, save, update)
	Path string // Cache file path
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("credential %s on %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("credential %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for StoreError.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, path string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
