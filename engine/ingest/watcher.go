package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/compozy/catalog/pkg/logger"
)

// ignoredDirs are never watched.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	"vendor":       true,
	"dist":         true,
	".cache":       true,
}

// Watcher re-runs ingestion when files under the root change. Bursts of
// events are collapsed into one run per debounce window.
type Watcher struct {
	ingester *Ingester
	debounce time.Duration
	onRun    func(*Result, error)
}

type WatcherOption func(*Watcher)

// WithRunHook is called after every triggered run.
func WithRunHook(fn func(*Result, error)) WatcherOption {
	return func(w *Watcher) {
		w.onRun = fn
	}
}

func NewWatcher(ingester *Ingester, opts ...WatcherOption) *Watcher {
	w := &Watcher{ingester: ingester, debounce: ingester.config.WatchDebounce}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done. It does not perform an initial ingestion.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	count, err := w.addTree(fsw, w.ingester.root)
	if err != nil {
		return fmt.Errorf("failed to walk ingestion root: %w", err)
	}
	log.Info("File watcher initialized", "root", w.ingester.root, "watched_directories", count)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(evt) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				if _, err := w.addTree(fsw, evt.Name); err != nil {
					log.Debug("Failed to watch new path", "path", evt.Name, "error", err)
				}
			}
			log.Debug("Descriptor change detected", "path", evt.Name, "op", evt.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error", "error", err)
		case <-timer.C:
			result, err := w.ingester.Run(ctx)
			if err != nil {
				log.Error("Re-ingestion failed", "error", err)
			}
			if w.onRun != nil {
				w.onRun(result, err)
			}
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(evt.Name)
	return !strings.HasPrefix(base, ".#") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}

// addTree watches dir and every non-ignored directory below it. Paths that
// are not directories are ignored.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}
