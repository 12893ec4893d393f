// Package watch re-normalizes documents as they change on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

// DefaultDebounce is the quiet period before queued documents are processed.
const DefaultDebounce = 200 * time.Millisecond

// Processor handles a single changed document.
type Processor interface {
	NormalizeFile(ctx context.Context, path string) models.Outcome
}

// Watch starts an fsnotify watcher on the store root and processes document
// changes until ctx is cancelled. Excluded directories are never watched.
//
// Create and Write events are collected per path and flushed once no new
// event arrived for the debounce period. A rewrite made by the processor
// itself triggers one more pass, which finds the document unchanged and
// does not write again.
func Watch(ctx context.Context, proc Processor, store storage.Provider, debounce time.Duration, logger *slog.Logger) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, store, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", debounce))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				o := proc.NormalizeFile(ctx, p)
				logger.Debug("watcher: processed", slog.String("path", p), slog.String("status", string(o.Status)))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if store.Excluded(rel) {
						continue
					}
					if addErr := addDirsRecursive(w, store, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
						continue
					}
					logger.Debug("watcher: watching new dir", slog.String("path", rel))
					// Documents may land in the directory before it is watched.
					for p, walkErr := range store.Discover(rel) {
						if walkErr == nil {
							schedule(p)
						}
					}
					continue
				}
			}

			if !store.IsDocument(rel) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and all its non-excluded subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, store storage.Provider, dir string) error {
	root := store.Root()
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			if rel, relErr := filepath.Rel(root, p); relErr == nil && store.Excluded(filepath.ToSlash(rel)) {
				return fs.SkipDir
			}
		}
		return w.Add(p)
	})
}
