// Package watcher watches the source tree and reports when it has gone
// quiet after a burst of changes.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 2 * time.Second

// SettleFunc is called once the tree has been quiet for the debounce
// period, with the paths that changed since the previous call.
type SettleFunc func(ctx context.Context, changed []string)

// Watcher watches a directory tree recursively. New subdirectories are
// picked up as they appear; symlinks are not followed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger

	mu      sync.Mutex
	paths   map[string]bool
	pending map[string]bool
	closed  bool
}

// New creates a Watcher. A non-positive debounce means DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		logger:   logging.Get(logging.Watcher),
		paths:    make(map[string]bool),
		pending:  make(map[string]bool),
	}, nil
}

// Watch adds root and every directory below it.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: absRoot, Err: fs.ErrInvalid}
	}
	return w.addTree(absRoot)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// Watched returns the number of watched directories.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Run processes events until ctx is cancelled, calling onSettle after
// every quiet period that follows at least one change. onSettle runs on
// the Run goroutine, so events arriving meanwhile are batched for the
// next call.
func (w *Watcher) Run(ctx context.Context, onSettle SettleFunc) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) {
				continue
			}
			// Reset is safe here: the timer has either fired and been
			// drained below or is still pending.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Debug("tree settled", "changed", len(changed))
			if onSettle != nil {
				onSettle(ctx, changed)
			}
		}
	}
}

// handleEvent records a change and reports whether it counts toward a sync.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.addTree(event.Name)
		}
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.forget(event.Name)
	}

	w.mu.Lock()
	w.pending[event.Name] = true
	w.mu.Unlock()
	return true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]bool)
	sort.Strings(changed)
	return changed
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
