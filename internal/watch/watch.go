// Package watch re-runs work when data files change.
//
// A Watcher follows files and directories with fsnotify and calls its
// handler once per changed file after a quiet period, so that editors that
// write a file in several steps trigger a single validation.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with the path of a file that changed.
type Handler func(ctx context.Context, path string)

// Config configures a Watcher.
type Config struct {
	// Paths are files or directories. Directories are watched recursively.
	Paths []string
	// Extensions limits directory events to these file extensions
	// (".csv"). Empty accepts every file.
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Watcher debounces file system events into Handler calls.
type Watcher struct {
	cfg     Config
	files   map[string]bool
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher. Run starts it.
func New(cfg Config, handler Handler) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		cfg:     cfg,
		files:   make(map[string]bool),
		handler: handler,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Pending handler calls are dropped on
// return.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	defer w.stopTimers()

	for _, p := range w.cfg.Paths {
		if err := w.add(watcher, p); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDir(watcher, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !w.accepts(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// add watches a file through its parent directory, since editors often
// replace files instead of writing them in place.
func (w *Watcher) add(watcher *fsnotify.Watcher, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	if info.IsDir() {
		return w.addDir(watcher, abs)
	}
	w.files[abs] = true
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	w.logger.Debug("watching file", "path", abs)
	return nil
}

// addDir adds a directory and all subdirectories to the watcher.
func (w *Watcher) addDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			w.logger.Debug("watching directory", "path", path)
			return watcher.Add(path)
		}
		return nil
	})
}

// accepts reports whether an event on path should trigger the handler.
func (w *Watcher) accepts(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	if !w.underWatchedDir(abs) {
		return false
	}
	if len(w.cfg.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(abs))
	for _, e := range w.cfg.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) underWatchedDir(abs string) bool {
	for _, p := range w.cfg.Paths {
		dir, err := filepath.Abs(p)
		if err != nil || w.files[dir] {
			continue
		}
		if rel, err := filepath.Rel(dir, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("file changed", "path", path)
		w.handler(ctx, path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
