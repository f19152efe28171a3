// Package watcher turns filesystem changes on manifest files into
// debounced update triggers.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/roster/pkg/roster/logging"
)

// ErrNothingToWatch indicates that none of the manifest directories
// could be added to the filesystem watcher.
var ErrNothingToWatch = errors.New("watcher: no manifest directory could be watched")

// changeOps are the operations that can alter a manifest's contents.
const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher watches manifest files for changes. Watches go on the parent
// directories rather than the files themselves: editors typically save
// by writing a temporary file and renaming it over the original, which
// silently drops a watch placed on the file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	tracked  map[string]bool // fixed at construction
	debounce time.Duration
	mu       sync.Mutex
	closed   bool
}

// New creates a Watcher over the given manifest paths. Events within
// one debounce interval of each other coalesce into a single change
// notification.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		tracked:  make(map[string]bool),
		debounce: debounce,
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.tracked[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watched := 0
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			logging.Get("watcher").Warn("cannot watch manifest dir", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 && len(dirs) > 0 {
		_ = fsw.Close()
		return nil, ErrNothingToWatch
	}

	return w, nil
}

// Tracked returns the watched manifest paths in sorted order.
func (w *Watcher) Tracked() []string {
	paths := make([]string, 0, len(w.tracked))
	for p := range w.tracked {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run dispatches change notifications until the context is cancelled.
// Changed manifest paths collect in a pending set and flush to onChange
// as a sorted batch once the debounce interval passes without further
// events.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) {
	log := logging.Get("watcher")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			log.Debug("manifest changed", "path", event.Name, "op", event.Op.String())
			pending[filepath.Clean(event.Name)] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)

			if onChange != nil {
				onChange(paths)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether the event touches a tracked manifest with an
// operation that can change its contents. Events for siblings in the
// watched directories are dropped here.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&changeOps == 0 {
		return false
	}
	return w.tracked[filepath.Clean(event.Name)]
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	return w.watcher.Close()
}
