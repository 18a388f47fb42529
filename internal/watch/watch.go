// Package watch reports Markdown files saved under a set of directories,
// batching bursts of events so each batch can be synced in one run.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event
// before handing over a batch.
const DefaultDebounce = 500 * time.Millisecond

// HandlerFunc receives a sorted batch of absolute file paths. Batches are
// delivered one at a time; events arriving meanwhile form the next batch.
type HandlerFunc func(ctx context.Context, paths []string)

// Watcher watches directory trees for Markdown file changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	pending  map[string]struct{}
}

// New creates a Watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}, nil
}

// Add watches root and every directory below it, skipping hidden ones.
func (w *Watcher) Add(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches to handle until ctx is done, then closes the
// watcher.
func (w *Watcher) Run(ctx context.Context, handle HandlerFunc) error {
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			batch := w.drain()
			if len(batch) == 0 {
				continue
			}
			w.logger.Debug("handing over changed files", "count", len(batch))
			handle(ctx, batch)
		}
	}
}

// handleEvent queues Markdown writes and starts watching new directories.
// It reports whether anything was queued.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	// Watched directories are never hidden, so only the name itself can be.
	if isHidden(filepath.Base(event.Name)) {
		return false
	}

	if event.Has(fsnotify.Create) && isDir(event.Name) {
		return w.addNewDir(event.Name)
	}

	if !IsMarkdown(event.Name) {
		return false
	}

	w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
	w.pending[event.Name] = struct{}{}
	return true
}

// addNewDir watches a directory created after Add and queues the Markdown
// files already in it, which may have been written before the watch began.
func (w *Watcher) addNewDir(dir string) bool {
	if err := w.Add(dir); err != nil {
		w.logger.Warn("failed to watch new directory", "path", dir, "error", err)
		return false
	}

	queued := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsMarkdown(path) {
			w.pending[path] = struct{}{}
			queued = true
		}
		return nil
	})
	return queued
}

func (w *Watcher) drain() []string {
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	clear(w.pending)
	slices.Sort(batch)
	return batch
}

// IsMarkdown reports whether path has a Markdown extension.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
