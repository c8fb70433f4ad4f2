package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// JSON keys of the persisted credential file.
const (
	tokenKey    = "token"
	userUUIDKey = "userUuid"
)

// Default filesystem modes for the cache file and its parent directories.
const (
	DefaultFileMode fs.FileMode = 0o600
	DefaultDirMode  fs.FileMode = 0o700
)

// Store maintains the current bearer token and owning user identifier for an
// HTTP client, backed by a single JSON file. It is safe for concurrent use;
// all state transitions are linearized by an instance mutex, and the mutex is
// held across file writes so a save is atomic relative to other operations on
// the same instance. Two Store instances over the same path are not
// coordinated; the path must be exclusively owned by one instance per process.
type Store struct {
	path     string
	fileMode fs.FileMode
	logger   *zap.Logger
	tracer   trace.Tracer

	mu      sync.Mutex
	token   string
	userID  uuid.UUID
	hasUser bool
}

// Option is a functional option for configuring the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used to trace load/save/update operations.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithFileMode sets the permissions used when writing the cache file.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode
	}
}

// New creates a Store bound to the given cache file path and loads any
// previously persisted credential. An absent file is not an error; the store
// starts with an empty credential. A path that exists but is not a regular
// file is rejected with ErrInvalidPath. A file that exists but cannot be
// parsed is rejected with ErrCorruptState so the caller decides whether to
// abort or reset the file.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, NewStoreError("new", path, fmt.Errorf("%w: path is required", ErrInvalidPath))
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, NewStoreError("new", path, fmt.Errorf("%w: path is a directory", ErrInvalidPath))
		}
		if !info.Mode().IsRegular() {
			return nil, NewStoreError("new", path, fmt.Errorf("%w: path is not a regular file", ErrInvalidPath))
		}
	case errors.Is(err, fs.ErrNotExist):
		// No persisted credential yet.
	default:
		return nil, NewStoreError("new", path, fmt.Errorf("%w: %v", ErrPersistence, err))
	}

	s := &Store{
		path:     filepath.Clean(path),
		fileMode: DefaultFileMode,
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("avhttpc/credential"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.Load(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the cache file path the store is bound to.
func (s *Store) Path() string {
	return s.path
}

// Token returns the current bearer token, or the empty string when no
// credential is held. It never performs I/O.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// UserID returns the current user identifier. The second return value is
// false when no credential is held.
func (s *Store) UserID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userID, s.hasUser
}

// Load reads the credential from the cache file into memory. An absent file
// leaves the store unchanged and returns nil. A file that cannot be parsed as
// a {token, userUuid} object with a valid trimmed token and canonical UUID
// fails with ErrCorruptState; a read failure fails with ErrPersistence.
func (s *Store) Load(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "credential.load",
		trace.WithAttributes(attribute.String("credential.path", s.path)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			span.SetAttributes(attribute.Bool("file.exists", false))
			recordLoad("absent")
			return nil
		}

		storeErr := NewStoreError("load", s.path, fmt.Errorf("%w: %v", ErrPersistence, err))
		recordLoad("error")
		return spanError(span, storeErr)
	}
	span.SetAttributes(attribute.Bool("file.exists", true))

	token, userID, err := decodeState(raw)
	if err != nil {
		recordLoad("corrupt")
		return spanError(span, NewStoreError("load", s.path, err))
	}

	s.setLocked(token, userID)
	recordLoad("success")

	s.logger.Debug("loaded credential from file",
		zap.String("path", s.path),
		zap.String("userUuid", userID.String()),
	)

	return nil
}

// Save persists the current credential to the cache file. Saving an empty
// credential is a no-op: the file keeps its last non-empty value until a
// subsequent non-empty update overwrites it. A write failure fails with
// ErrPersistence and leaves in-memory state untouched.
func (s *Store) Save(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "credential.save",
		trace.WithAttributes(attribute.String("credential.path", s.path)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(span)
}

// Update atomically replaces the in-memory credential and persists it. The
// token must be non-empty and trimmed (ErrInvalidToken) and the user
// identifier must be set (ErrMissingUserID); validation failures leave prior
// state unchanged. When persistence fails the in-memory update is not rolled
// back: the store keeps serving the new token, ErrPersistence is returned,
// and callers needing durability retry Save.
func (s *Store) Update(ctx context.Context, token string, userID uuid.UUID) error {
	if err := validateCredential(token, userID); err != nil {
		recordUpdate("invalid")
		return NewStoreError("update", s.path, err)
	}

	_, span := s.tracer.Start(ctx, "credential.update")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(token, userID)
	recordUpdate("success")

	return s.saveLocked(span)
}

// setLocked replaces the in-memory credential. The caller must hold s.mu.
func (s *Store) setLocked(token string, userID uuid.UUID) {
	s.token = token
	s.userID = userID
	s.hasUser = true
	setTokenPresent(token != "")
}

// saveLocked writes the current credential to the cache file, creating
// parent directories as needed. The caller must hold s.mu.
func (s *Store) saveLocked(span trace.Span) error {
	if s.token == "" {
		span.AddEvent("skipping save, token is empty")
		recordSave("skipped")
		return nil
	}

	data, err := json.Marshal(map[string]string{
		tokenKey:    s.token,
		userUUIDKey: s.userID.String(),
	})
	if err != nil {
		recordSave("error")
		return spanError(span, NewStoreError("save", s.path, fmt.Errorf("%w: %v", ErrPersistence, err)))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), DefaultDirMode); err != nil {
		recordSave("error")
		return spanError(span, NewStoreError("save", s.path, fmt.Errorf("%w: %v", ErrPersistence, err)))
	}

	if err := os.WriteFile(s.path, data, s.fileMode); err != nil {
		recordSave("error")
		return spanError(span, NewStoreError("save", s.path, fmt.Errorf("%w: %v", ErrPersistence, err)))
	}

	recordSave("success")
	s.logger.Debug("persisted credential to file", zap.String("path", s.path))

	return nil
}

// decodeState parses the persisted JSON object into a validated credential.
func decodeState(raw []byte) (string, uuid.UUID, error) {
	var state map[string]string
	if err := json.Unmarshal(raw, &state); err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	token, ok := state[tokenKey]
	if !ok {
		return "", uuid.Nil, fmt.Errorf("%w: missing %q key", ErrCorruptState, tokenKey)
	}

	rawID, ok := state[userUUIDKey]
	if !ok {
		return "", uuid.Nil, fmt.Errorf("%w: missing %q key", ErrCorruptState, userUUIDKey)
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: invalid %q: %v", ErrCorruptState, userUUIDKey, err)
	}

	if err := validateCredential(token, userID); err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return token, userID, nil
}

// validateCredential enforces the credential invariant: a non-empty trimmed
// token paired with a set user identifier.
func validateCredential(token string, userID uuid.UUID) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}
	if token != strings.TrimSpace(token) {
		return fmt.Errorf("%w: token must be trimmed", ErrInvalidToken)
	}
	if userID == uuid.Nil {
		return ErrMissingUserID
	}
	return nil
}

// spanError records err on span and returns it unchanged.
func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
