// Package watcher follows changes to individual files, the configuration file
// in particular, and reports each change once it has settled.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wavepulse/internal/logging"
)

// Watcher monitors a set of files. It watches their parent directories so
// that editors which replace files by rename are still seen.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	files        map[string]bool
	debounce     time.Duration
	onFileChange FileChangeHandler
	pending      map[string]pendingEvent
	mu           sync.Mutex
	done         chan struct{}
	running      bool
	stopOnce     sync.Once
}

type pendingEvent struct {
	op   fsnotify.Op
	seen time.Time
}

// NewWatcher creates a watcher for files.
func NewWatcher(cfg Config, files ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultConfig().Debounce
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		files:     make(map[string]bool),
		debounce:  debounce,
		pending:   make(map[string]pendingEvent),
		done:      make(chan struct{}),
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.files[abs] = true
		}
	}
	return w, nil
}

// SetOnFileChange sets the callback for file change events.
func (w *Watcher) SetOnFileChange(handler FileChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFileChange = handler
}

// Start begins watching for file changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	go w.processEvents()
	go w.processDebounce()
	return nil
}

// Stop stops watching for file changes.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	w.stopOnce.Do(func() {
		close(w.done)
	})
	return w.fsWatcher.Close()
}

// processEvents processes raw fsnotify events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("file watcher error", "error", err)
		}
	}
}

// handleEvent records an event on a watched file for debouncing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !w.files[path] {
		return
	}

	w.mu.Lock()
	p := w.pending[path]
	p.op |= event.Op
	p.seen = time.Now()
	w.pending[path] = p
	w.mu.Unlock()
}

// processDebounce flushes settled events.
func (w *Watcher) processDebounce() {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flushPending(time.Now())
		}
	}
}

// flushPending sends events for paths that have been stable for the debounce
// window.
func (w *Watcher) flushPending(now time.Time) {
	w.mu.Lock()
	handler := w.onFileChange
	if handler == nil || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	var toSend []Event
	for path, p := range w.pending {
		if now.Sub(p.seen) >= w.debounce {
			toSend = append(toSend, Event{Path: path, Operation: detectOperation(path, p.op), Time: now})
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	// Send events outside of lock
	for _, e := range toSend {
		handler(e)
	}
}

// detectOperation determines the settled operation for a path.
func detectOperation(path string, op fsnotify.Op) Operation {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if op.Has(fsnotify.Rename) {
			return OpRename
		}
		return OpDelete
	}
	if op.Has(fsnotify.Create) && !op.Has(fsnotify.Write) {
		return OpCreate
	}
	return OpModify
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
