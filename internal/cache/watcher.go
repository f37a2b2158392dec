package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/razvandimescu/molesk/internal/logger"
)

// Watcher turns filesystem activity under a root into change signals.
// Signals carry no payload: any change invalidates everything.
type Watcher struct {
	mu      sync.Mutex
	current *fsnotify.Watcher
	cancel  context.CancelFunc
	root    string
	events  chan struct{}
}

// NewWatcher returns a Watcher whose Events channel holds up to buffer
// pending signals. Signals beyond that are dropped.
func NewWatcher(buffer int) *Watcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Watcher{events: make(chan struct{}, buffer)}
}

func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Watch starts watching root and every directory below it, replacing any
// previous watch. The watch stops when ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context, root string) error {
	w.mu.Lock()

	w.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.root = root

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		w.cancel = nil
		w.mu.Unlock()
		return err
	}
	w.current = watcher

	if err := watcher.Add(root); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Warn("Failed to close watcher after add error: %v", closeErr)
		}
		cancel()
		w.current = nil
		w.cancel = nil
		w.mu.Unlock()
		return err
	}

	// Walk without the lock so large trees don't block Close
	w.mu.Unlock()

	dirs, err := collectDirectories(root)
	if err != nil {
		w.mu.Lock()
		if w.current == watcher {
			w.stopLocked()
		}
		w.mu.Unlock()
		return fmt.Errorf("directory walk failed: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != watcher {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Warn("Failed to close abandoned watcher: %v", closeErr)
		}
		cancel()
		return errors.New("watcher setup cancelled (replaced during walk)")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("Warning: Cannot watch directory %s: %v", dir, err)
		}
	}
	logger.Debug("Watching %s (%d subdirectories)", root, len(dirs))

	go w.loop(ctx, watcher, root)
	return nil
}

// collectDirectories returns every directory below root, root excluded.
func collectDirectories(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Warning: Cannot walk %s: %v", path, err)
			return nil
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, root string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					handleDirCreated(watcher, root, event.Name)
				}
			}
			logger.Debug("Content changed: %s %s", event.Op, event.Name)
			w.signal()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Directory watcher error: %v", err)
		}
	}
}

// handleDirCreated watches a new directory and everything already inside it,
// as long as it resolves inside root.
func handleDirCreated(watcher *fsnotify.Watcher, root, dirPath string) {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		resolvedRoot = root
	}
	resolved, err := filepath.EvalSymlinks(dirPath)
	if err != nil || (resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator))) {
		return
	}

	if err := watcher.Add(dirPath); err != nil {
		logger.Warn("Warning: Cannot watch new directory %s: %v", dirPath, err)
		return
	}
	logger.Debug("Now watching new directory: %s", dirPath)

	nested, err := collectDirectories(dirPath)
	if err != nil {
		return
	}
	for _, dir := range nested {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("Warning: Cannot watch new directory %s: %v", dir, err)
		}
	}
}

func (w *Watcher) signal() {
	select {
	case w.events <- struct{}{}:
	default:
		// A pending signal already covers this change
	}
}

func (w *Watcher) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.current != nil {
		if err := w.current.Close(); err != nil {
			logger.Warn("Failed to close watcher: %v", err)
		}
		w.current = nil
	}
}

// Close stops the current watch. The Events channel stays open.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}
