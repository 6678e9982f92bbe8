package world

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"jarvis/internal/logging"
)

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Invalidations int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// Watcher marks a workspace snapshot stale after file changes settle.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	ws          *Workspace
	pending     map[string]time.Time
	debounceDur time.Duration
	onChange    func(paths []string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a path must be quiet before it counts as changed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// WithOnChange registers a callback run after each invalidation with the
// settled paths.
func WithOnChange(fn func(paths []string)) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// NewWatcher creates a watcher for ws. Call Start to begin watching.
func NewWatcher(ws *Workspace, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:     fw,
		ws:          ws,
		pending:     make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches the root and its visible subdirectories up to the snapshot
// depth. It does not block. While running, Workspace.Snapshot serves the
// cached listing until an event invalidates it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.ws.Root()); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}

	w.ws.mu.Lock()
	w.ws.watcher = w
	w.ws.stale = true
	w.ws.mu.Unlock()

	logging.World("Watching workspace %s", w.ws.Root())
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.ws.mu.Lock()
	if w.ws.watcher == w {
		w.ws.watcher = nil
	}
	w.ws.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		logging.WorldWarn("Error closing workspace watcher: %v", err)
	}
	logging.World("Workspace watcher stopped")
}

// Stats returns a copy of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) addTree(root string) error {
	base := w.ws.Root()
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != base && skipEntry(d.Name(), true) {
			return filepath.SkipDir
		}
		if rel, _ := filepath.Rel(base, path); rel != "." && depthOf(rel) >= w.ws.opts.Depth {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			if path == base {
				return err
			}
			logging.WorldDebug("Cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func depthOf(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WorldWarn("Workspace watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	var kind string
	switch {
	case event.Has(fsnotify.Create):
		kind = "create"
	case event.Has(fsnotify.Write):
		kind = "modify"
	case event.Has(fsnotify.Remove):
		kind = "delete"
	case event.Has(fsnotify.Rename):
		kind = "rename"
	default:
		return
	}
	if skipEntry(filepath.Base(event.Name), false) {
		return
	}

	if kind == "create" {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.WorldDebug("Cannot watch new directory %s: %v", event.Name, err)
			}
		}
	}

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventType = kind
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flush invalidates the snapshot once pending paths have settled.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Invalidations++
	}
	onChange := w.onChange
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	w.ws.Invalidate()
	logging.WorldDebug("Workspace changed: %d path(s)", len(settled))
	if onChange != nil {
		onChange(settled)
	}
}
