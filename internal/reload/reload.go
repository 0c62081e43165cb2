// Package reload detects changes to the heating configuration file.
package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrChanged is returned by Watcher.Run when the configuration file changed.
var ErrChanged = errors.New("configuration file changed")

// DefaultDebounce is the time a file must be left untouched before a change is reported.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a file and reports when it has been written, created or replaced.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Run returns ErrChanged once the file has changed, or nil when ctx is canceled.
//
// Run watches the file's directory, so editors that replace the file (rather than writing it) are detected too.
func (w Watcher) Run(ctx context.Context) error {
	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.Path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	w.Logger.Debug("watching configuration file", "path", target)
	defer w.Logger.Debug("stopped watching configuration file")

	debounce := w.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timerCh = time.After(debounce)
		case <-timerCh:
			w.Logger.Info("configuration file changed", "path", target)
			return ErrChanged
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("configuration watcher error", "err", err)
		}
	}
}
