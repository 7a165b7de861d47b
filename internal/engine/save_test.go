package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

func TestSaveDebounceCollapsesDuplicates(t *testing.T) {
	e, st, _, _ := newTestEngine(t)
	e.config.Debounce = 30 * time.Millisecond

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "old body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})
	attemptsBefore := st.WriteAttempts()

	// Two triggers inside the window: only the last one executes.
	e.Save(context.Background(), path, "first version", nil)
	e.Save(context.Background(), path, "second version", nil)
	e.Flush()

	if got := st.WriteAttempts() - attemptsBefore; got != 1 {
		t.Fatalf("write attempts = %d, want exactly 1", got)
	}
	content, _ := st.Content(path)
	if !strings.Contains(content, "second version") {
		t.Errorf("store holds %q, want the later payload", content)
	}
}

func TestSaveMutualExclusionDropsConcurrentCall(t *testing.T) {
	e, st, _, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	if !e.sessions.begin(path, time.Now()) {
		t.Fatal("begin should claim a free path")
	}
	defer e.sessions.end(path)

	attemptsBefore := st.WriteAttempts()
	if err := e.SaveNow(context.Background(), path, "competing write", nil); err != nil {
		t.Fatalf("SaveNow while busy should drop, not fail: %v", err)
	}
	if got := st.WriteAttempts() - attemptsBefore; got != 0 {
		t.Errorf("dropped save still wrote %d times", got)
	}
}

func TestSaveConflictRetryBound(t *testing.T) {
	e, st, _, rec := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	attemptsBefore := st.WriteAttempts()
	st.FailNextWrites(100)

	err := e.SaveNow(context.Background(), path, "new body", nil)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected surfaced conflict, got %v", err)
	}
	if got := st.WriteAttempts() - attemptsBefore; got != 3 {
		t.Errorf("write attempts = %d, want exactly 3", got)
	}
	if rec.lastStep(path) != StepFailed {
		t.Errorf("last progress step = %q, want failed", rec.lastStep(path))
	}
	if len(rec.failed) == 0 {
		t.Error("failure was not surfaced to the notifier")
	}
}

func TestSaveConflictOnceThenSucceeds(t *testing.T) {
	e, st, _, rec := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "old body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	attemptsBefore := st.WriteAttempts()
	st.FailNextWrites(1)

	if err := e.SaveNow(context.Background(), path, "fresh body", nil); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if got := st.WriteAttempts() - attemptsBefore; got != 2 {
		t.Errorf("write attempts = %d, want exactly 2", got)
	}
	content, _ := st.Content(path)
	if !strings.Contains(content, "fresh body") {
		t.Errorf("store content = %q, want new body", content)
	}

	steps := rec.steps(path)
	if steps[len(steps)-1] != StepDone {
		t.Errorf("progress = %v, want to end at done", steps)
	}
	sawConflict := false
	for _, s := range steps {
		if s == StepResolvingConflict {
			sawConflict = true
		}
	}
	if !sawConflict {
		t.Errorf("progress = %v, expected a resolving-conflict step", steps)
	}
}

func TestSavePreservesSelectionAcrossTokenChange(t *testing.T) {
	e, st, _, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	oldID := seedTodo(t, st, path, "A", "old body")
	seedTodo(t, st, "todos/2025-01-02-b.md", "B", "other")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})
	if e.SelectedID() != oldID {
		t.Fatalf("precondition: selection = %q", e.SelectedID())
	}

	if err := e.SaveNow(context.Background(), path, "new body", nil); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}

	sel := e.Selected()
	if sel == nil || sel.Path != path {
		t.Fatalf("selection after save = %+v, want same path", sel)
	}
	if sel.ID == oldID {
		t.Error("version token should have changed on write")
	}
}

func TestSaveRawPayloadKeepsFrontmatter(t *testing.T) {
	e, st, _, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "Keep Me", "old body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	if err := e.SaveNow(context.Background(), path, "raw markdown body", nil); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}

	content, _ := st.Content(path)
	fm, body, ok, err := todo.ParseDocument(content)
	if err != nil || !ok {
		t.Fatalf("stored document lost its frontmatter: %v", err)
	}
	if fm.Title != "Keep Me" {
		t.Errorf("title = %q, want preserved", fm.Title)
	}
	if !strings.Contains(body, "raw markdown body") {
		t.Errorf("body = %q", body)
	}
}

func TestSaveFramedPayloadMergesChatHistory(t *testing.T) {
	e, st, _, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	framed, err := todo.SerializeDocument(todo.Frontmatter{
		Title:     "A renamed inline",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Priority:  1,
	}, "framed body")
	if err != nil {
		t.Fatalf("SerializeDocument: %v", err)
	}

	history := []todo.ChatMessage{{Role: "user", Content: "do the thing"}}
	if err := e.SaveNow(context.Background(), path, framed, history); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}

	content, _ := st.Content(path)
	fm, _, _, err := todo.ParseDocument(content)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if fm.Title != "A renamed inline" || fm.Priority != 1 {
		t.Errorf("framed frontmatter not kept: %+v", fm)
	}
	if len(fm.ChatHistory) != 1 || fm.ChatHistory[0].Content != "do the thing" {
		t.Errorf("chat history not merged: %+v", fm.ChatHistory)
	}
}

func TestSaveClearsDraft(t *testing.T) {
	e, st, state, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	if err := state.SaveDraft(path, "unsaved edits"); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := e.SaveNow(context.Background(), path, "final body", nil); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if got := state.LoadDraft(path); got != "" {
		t.Errorf("draft = %q, want cleared after save", got)
	}
}

func TestSaveSessionAlwaysReleased(t *testing.T) {
	e, st, _, _ := newTestEngine(t)

	path := "todos/2025-01-01-a.md"
	seedTodo(t, st, path, "A", "body")
	mustRefresh(t, e, RefreshOptions{ViewMode: todo.ViewOpen})

	st.FailNextWrites(100)
	if err := e.SaveNow(context.Background(), path, "x", nil); err == nil {
		t.Fatal("expected failure")
	}
	st.FailNextWrites(0)

	// The in-flight flag must be gone; a fresh save must run.
	if err := e.SaveNow(context.Background(), path, "recovered", nil); err != nil {
		t.Fatalf("save after failure blocked: %v", err)
	}
	content, _ := st.Content(path)
	if !strings.Contains(content, "recovered") {
		t.Errorf("content = %q", content)
	}
}
