package reload

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heating.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultTemperature: 20\n"), 0o644))

	w := Watcher{Path: path, Debounce: 10 * time.Millisecond, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	errCh := make(chan error)
	go func() { errCh <- w.Run(context.Background()) }()

	// changes to other files in the directory are ignored
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("foo"), 0o644)
		_ = os.WriteFile(path, []byte("defaultTemperature: 21\n"), 0o644)
		select {
		case err := <-errCh:
			return assert.ErrorIs(t, err, ErrChanged)
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_Cancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heating.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	w := Watcher{Path: path, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	errCh := make(chan error)
	go func() { errCh <- w.Run(ctx) }()
	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := Watcher{Path: filepath.Join(t.TempDir(), "missing", "heating.yaml"), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.Error(t, w.Run(context.Background()))
}
