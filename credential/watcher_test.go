package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnExternalWrite(t *testing.T) {
	t.Parallel()

	path := cachePath(t)

	store, err := New(path)
	require.NoError(t, err)

	reloaded := make(chan string, 4)

	watcher, err := NewWatcher(store,
		WithDebounceDelay(20*time.Millisecond),
		WithReloadCallback(func(token string) {
			reloaded <- token
		}),
	)
	require.NoError(t, err)

	require.NoError(t, watcher.Start(context.Background()))
	defer func() {
		require.NoError(t, watcher.Stop())
	}()

	state := fmt.Sprintf(`{"token": "rotated", "userUuid": %q}`, uuid.NewString())
	require.NoError(t, os.WriteFile(path, []byte(state), 0o600))

	select {
	case token := <-reloaded:
		assert.Equal(t, "rotated", token)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for credential reload")
	}

	assert.Equal(t, "rotated", store.Token())
}

func TestWatcher_ErrorCallbackOnCorruptWrite(t *testing.T) {
	t.Parallel()

	path := cachePath(t)

	store, err := New(path)
	require.NoError(t, err)

	errs := make(chan error, 4)

	watcher, err := NewWatcher(store,
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(err error) {
			errs <- err
		}),
	)
	require.NoError(t, err)

	require.NoError(t, watcher.Start(context.Background()))
	defer func() {
		require.NoError(t, watcher.Stop())
	}()

	require.NoError(t, os.WriteFile(path, []byte("not-json{"), 0o600))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrCorruptState)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	// The failed reload must not disturb in-memory state.
	assert.Equal(t, "", store.Token())
}

func TestWatcher_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := New(cachePath(t))
	require.NoError(t, err)

	watcher, err := NewWatcher(store)
	require.NoError(t, err)

	require.NoError(t, watcher.Start(context.Background()))
	require.NoError(t, watcher.Start(context.Background()))
	require.NoError(t, watcher.Stop())
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	t.Parallel()

	// Parent directory does not exist yet, so the directory watch cannot
	// be established.
	path := filepath.Join(t.TempDir(), "missing", "credentials.json")

	store, err := New(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(store)
	require.NoError(t, err)

	require.Error(t, watcher.Start(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- watcher.Stop()
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Stop after failed Start")
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	store, err := New(cachePath(t))
	require.NoError(t, err)

	watcher, err := NewWatcher(store)
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
}
