package drafts

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/gitodo/internal/todo"
)

// TestNewWatcher verifies that creating a new Watcher succeeds.
func TestNewWatcher(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if w.IsRunning() {
		t.Error("Newly created watcher should not be running")
	}
}

// TestWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestWatcher_StartStop(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if !w.IsRunning() {
		t.Error("Watcher should be running after Start()")
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	if w.IsRunning() {
		t.Error("Watcher should not be running after Stop()")
	}
}

// TestWatcher_StartAlreadyRunning verifies that starting an already running watcher fails.
func TestWatcher_StartAlreadyRunning(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}

	if err := w.Start(draftsDir, "todos"); err == nil {
		t.Error("Second Start() should fail when watcher is already running")
	}
}

// TestWatcher_DraftWritten verifies that writing a draft triggers an event
// mapped to the storage key.
func TestWatcher_DraftWritten(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	draftPath := filepath.Join(draftsDir, "2025-06-15-buy-milk.md")
	if err := os.WriteFile(draftPath, []byte("- milk\n"), 0644); err != nil {
		t.Fatalf("Failed to write draft: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Op != OpWrite {
			t.Errorf("Expected write event, got %s", ev.Op)
		}
		if ev.Key != "todos/2025-06-15-buy-milk.md" {
			t.Errorf("Unexpected key %q", ev.Key)
		}
		if ev.Content != "- milk\n" {
			t.Errorf("Unexpected content %q", ev.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for draft event")
	}
}

// TestWatcher_IgnoresNonMarkdown verifies that non-markdown files never
// produce events.
func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(draftsDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("Unexpected event for non-markdown file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

// TestWatcher_DraftDeleted verifies that removing a draft emits a delete
// event without content.
func TestWatcher_DraftDeleted(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	draftPath := filepath.Join(draftsDir, "2025-06-15-old.md")
	if err := os.WriteFile(draftPath, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to write draft: %v", err)
	}

	// Drain the write event
	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for write event")
	}

	if err := os.Remove(draftPath); err != nil {
		t.Fatalf("Failed to remove draft: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Op != OpDelete {
			t.Errorf("Expected delete event, got %s", ev.Op)
		}
		if ev.Key != "todos/2025-06-15-old.md" {
			t.Errorf("Unexpected key %q", ev.Key)
		}
		if ev.Content != "" {
			t.Errorf("Delete event should carry no content, got %q", ev.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for delete event")
	}
}

type recordingSaver struct {
	mu    sync.Mutex
	paths []string
	bodys []string
}

func (s *recordingSaver) Save(_ context.Context, path, content string, _ []todo.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	s.bodys = append(s.bodys, content)
}

func (s *recordingSaver) saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

type recordingDrafts struct {
	mu      sync.Mutex
	saved   map[string]string
	cleared []string
}

func newRecordingDrafts() *recordingDrafts {
	return &recordingDrafts{saved: make(map[string]string)}
}

func (d *recordingDrafts) SaveDraft(path, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saved[path] = content
	return nil
}

func (d *recordingDrafts) ClearDraft(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleared = append(d.cleared, path)
	return nil
}

// TestRunner_RoutesWriteToSave verifies that a draft write is persisted to
// state and forwarded to the save pipeline.
func TestRunner_RoutesWriteToSave(t *testing.T) {
	draftsDir := filepath.Join(t.TempDir(), "drafts")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(draftsDir, "todos"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	saver := &recordingSaver{}
	state := newRecordingDrafts()
	runner := NewRunner(w, saver, state, log.New(os.Stderr, "[test] ", log.LstdFlags))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	draftPath := filepath.Join(draftsDir, "2025-06-15-plan.md")
	if err := os.WriteFile(draftPath, []byte("plan body\n"), 0644); err != nil {
		t.Fatalf("Failed to write draft: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(saver.saved()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	paths := saver.saved()
	if len(paths) == 0 {
		t.Fatal("Save was never triggered")
	}
	if paths[0] != "todos/2025-06-15-plan.md" {
		t.Errorf("Unexpected save path %q", paths[0])
	}

	state.mu.Lock()
	persisted := state.saved["todos/2025-06-15-plan.md"]
	state.mu.Unlock()
	if persisted != "plan body\n" {
		t.Errorf("Draft not persisted to state, got %q", persisted)
	}
}
