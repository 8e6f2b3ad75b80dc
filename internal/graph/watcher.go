package graph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Holder whenever its graph file changes on disk.
//
// The parent directory is watched rather than the file itself so that editors
// which save by renaming a temporary file are still picked up. Bursts of
// events are collapsed into a single reload once the debounce window passes
// without new changes.
type Watcher struct {
	path     string
	holder   *Holder
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for path. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(path string, holder *Holder, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "concept_graph_watcher")),
	}
}

// Run blocks until ctx is cancelled. Reload failures are logged and leave the
// current graph in place.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("watching concept graph", slog.String("path", w.path))

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			fire = time.After(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			// Errors are already logged by the holder.
			_ = w.holder.Reload(w.path)
		}
	}
}
