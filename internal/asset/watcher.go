package asset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
)

// invalidator is the slice of the player cache the watcher needs.
type invalidator interface {
	Clear(key model.VideoKey)
}

// BundleWatcher clears cached players whose bundle file was rewritten, removed or renamed,
// so the next request resolves the asset again.
// Newly created files need no action because failed lookups are never cached.
type BundleWatcher struct {
	dir     string
	cache   invalidator
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewBundleWatcher starts watching dir. Call Run to process events and Close to release the watch.
func NewBundleWatcher(dir string, cache invalidator, logger *slog.Logger) (*BundleWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch bundle directory: %w", err)
	}

	return &BundleWatcher{dir: dir, cache: cache, watcher: w, logger: logger}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *BundleWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("bundle watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *BundleWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	key, ok := KeyFromPath(event.Name)
	if !ok {
		return
	}

	w.logger.Info("bundle asset changed, clearing cached player",
		"video_key", key,
		"op", event.Op.String(),
	)
	w.cache.Clear(key)
}

// Close stops watching the bundle directory.
func (w *BundleWatcher) Close() error {
	return w.watcher.Close()
}
