package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"stopmo/internal/storage"
)

// settleDelay is how long a staged file must sit quiet before it is
// picked up. Editors and capture tools write in bursts.
const settleDelay = 500 * time.Millisecond

// FrameHandler receives a staged frame once its file has settled.
type FrameHandler func(ctx context.Context, index int, path string) error

// Watch monitors dir for canonically named frame files and invokes
// handle for each one that appears or changes. It blocks until ctx is
// cancelled.
//
// Non-frame files are ignored. Handler failures are logged and do not
// stop the watch.
func (e *Engine) Watch(ctx context.Context, dir string, handle FrameHandler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	e.logger.Info("watching for staged frames", "dir", dir)

	// Pending frames keyed by index, flushed once settleDelay passes
	// without further writes.
	pending := make(map[int]string)
	timer := time.NewTimer(settleDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			index, ok := storage.ParseFrameFilename(filepath.Base(event.Name))
			if !ok {
				continue
			}
			pending[index] = event.Name
			timer.Reset(settleDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "error", err)

		case <-timer.C:
			for index, path := range pending {
				if err := handle(ctx, index, path); err != nil {
					e.logger.Error("staged frame rejected", "frame", index, "path", path, "error", err)
				} else {
					e.logger.Info("staged frame handled", "frame", index, "path", path)
				}
			}
			clear(pending)
		}
	}
}
