// Package drafts provides file system watching for locally edited todo
// drafts.
//
// A draft is a markdown file in the drafts directory whose name mirrors a
// storage key under the collection root. Writing a draft triggers a save
// through the engine's debounced pipeline; the draft content is also
// persisted to local state first, so an edit survives a crash between the
// write and the save landing.
package drafts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpWrite indicates a draft was created or modified.
	OpWrite EventOp = iota
	// OpDelete indicates a draft was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// DraftEvent represents a change to one draft file.
type DraftEvent struct {
	// LocalPath is the absolute path of the draft file.
	LocalPath string
	// Key is the storage path the draft maps to, relative to the
	// collection root.
	Key string
	// Op is the operation that occurred.
	Op EventOp
	// Content is the draft body for OpWrite, empty for OpDelete.
	Content string
}

// Watcher watches the drafts directory for markdown changes.
// It uses fsnotify for cross-platform file system event monitoring.
type Watcher struct {
	watcher   *fsnotify.Watcher
	events    chan DraftEvent
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	draftsDir string
	root      string
}

// NewWatcher creates a new Watcher instance.
// The watcher must be started with Start() before it will emit events.
func NewWatcher() (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		events:  make(chan DraftEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching draftsDir for *.md events. Draft file names map to
// storage keys under root: draftsDir/buy-milk.md -> root/buy-milk.md.
func (w *Watcher) Start(draftsDir, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := os.MkdirAll(draftsDir, 0755); err != nil {
		return fmt.Errorf("failed to create drafts directory %s: %w", draftsDir, err)
	}

	w.draftsDir = draftsDir
	w.root = root

	if err := w.watcher.Add(draftsDir); err != nil {
		return fmt.Errorf("failed to watch drafts directory %s: %w", draftsDir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching for file system events and cleans up resources.
// It blocks until the event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	// Closing the underlying watcher unblocks the event loop
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits DraftEvent notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan DraftEvent {
	return w.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// processEvents is the main event loop that converts fsnotify events into
// DraftEvent notifications.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if draftEvent, ok := w.convertEvent(event); ok {
				select {
				case w.events <- draftEvent:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to a DraftEvent.
// Returns (DraftEvent{}, false) for events that should be ignored.
func (w *Watcher) convertEvent(event fsnotify.Event) (DraftEvent, bool) {
	if !strings.HasSuffix(event.Name, ".md") {
		return DraftEvent{}, false
	}

	key, ok := w.keyFor(event.Name)
	if !ok {
		return DraftEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// Treat rename as delete (the new name will trigger a create)
		op = OpDelete
	default:
		// Ignore chmod and other events
		return DraftEvent{}, false
	}

	ev := DraftEvent{
		LocalPath: event.Name,
		Key:       key,
		Op:        op,
	}

	if op == OpWrite {
		// Editors write in multiple steps; an unreadable or empty file
		// means the write is still in progress and a follow-up event
		// will carry the full content.
		data, err := os.ReadFile(event.Name)
		if err != nil || len(data) == 0 {
			return DraftEvent{}, false
		}
		ev.Content = string(data)
	}

	return ev, true
}

// keyFor maps a draft file path to its storage key under the collection
// root. Only direct children of the drafts directory qualify.
func (w *Watcher) keyFor(path string) (string, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	absDrafts, _ := filepath.Abs(w.draftsDir)
	if filepath.Dir(absPath) != absDrafts {
		return "", false
	}

	return w.root + "/" + filepath.Base(absPath), true
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
