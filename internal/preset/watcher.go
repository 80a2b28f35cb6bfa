package preset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change kinds reported by Watch.
const (
	ChangeLoaded  = "loaded"
	ChangeRemoved = "removed"
	ChangeFailed  = "failed"
)

// ChangeCallback is called after the watcher updated the library.
type ChangeCallback func(kind, path string)

// DefaultDebounce is the quiet period before changed files are reloaded.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads recipe files in dir as they change until ctx is cancelled.
// Bursts of events for the same file are coalesced into one reload after
// debounce of quiet.
func Watch(ctx context.Context, lib *Library, dir string, debounce time.Duration, logger *slog.Logger, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("preset watcher: started", slog.String("dir", dir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
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
			logger.Info("preset watcher: stopped")
			return nil

		case <-fire:
			for path := range pending {
				reload(lib, path, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !IsRecipeFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("preset watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(lib *Library, path string, logger *slog.Logger, cb ChangeCallback) {
	if _, err := os.Stat(path); err != nil {
		names := lib.RemoveSource(path)
		logger.Debug("preset watcher: removed", slog.String("path", path), slog.Int("recipes", len(names)))
		if cb != nil {
			cb(ChangeRemoved, path)
		}
		return
	}
	r, err := lib.LoadFile(path)
	if err != nil {
		logger.Warn("preset watcher: reload failed", slog.String("path", path), slog.String("error", err.Error()))
		if cb != nil {
			cb(ChangeFailed, path)
		}
		return
	}
	logger.Debug("preset watcher: loaded", slog.String("path", path), slog.String("name", r.Name))
	if cb != nil {
		cb(ChangeLoaded, path)
	}
}
