// Package watch follows the vault directory for changes made outside the
// vault API and repairs the tag index after them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for the directory to settle
// before reconciling.
const DefaultDebounce = 200 * time.Millisecond

// Reconciler drops tag entries whose file is gone.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]string, error)
}

// EventCallback is called after a reconcile pass. kind is "deleted" for each
// id whose orphaned tags were removed, and "changed" with an empty id once per
// pass.
type EventCallback func(kind, id string)

// Watch watches root until ctx is cancelled. Bursts of events are debounced
// into a single reconcile pass.
func Watch(ctx context.Context, root string, r Reconciler, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("watch: mkdir root: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return fmt.Errorf("watch: add %s: %w", root, err)
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			reconcile(ctx, r, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Hidden names are in-flight temp files.
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reconcile(ctx context.Context, r Reconciler, logger *slog.Logger, cb EventCallback) {
	removed, err := r.Reconcile(ctx)
	if err != nil {
		logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		return
	}
	if cb == nil {
		return
	}
	for _, id := range removed {
		cb("deleted", id)
	}
	cb("changed", "")
}
