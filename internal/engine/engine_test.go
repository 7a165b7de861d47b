package engine

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/store/memstore"
	"github.com/example/gitodo/internal/todo"
)

// recordingNotifier captures progress events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []ProgressEvent
	failed []error
}

func (r *recordingNotifier) SaveProgress(path string, step SaveStep, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ProgressEvent{Path: path, Step: step, Attempt: attempt})
}

func (r *recordingNotifier) RefreshCompleted(total, visible int, mode todo.ViewMode) {}

func (r *recordingNotifier) SaveFailed(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func (r *recordingNotifier) steps(path string) []SaveStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SaveStep
	for _, ev := range r.events {
		if ev.Path == path {
			out = append(out, ev.Step)
		}
	}
	return out
}

func (r *recordingNotifier) lastStep(path string) SaveStep {
	steps := r.steps(path)
	if len(steps) == 0 {
		return ""
	}
	return steps[len(steps)-1]
}

// newTestEngine builds an engine over a fresh in-memory store with
// debounce and settle delays disabled.
func newTestEngine(t *testing.T) (*Engine, *memstore.Store, *settings.State, *recordingNotifier) {
	t.Helper()

	st := memstore.New()
	state, err := settings.OpenState(t.TempDir())
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}

	rec := &recordingNotifier{}
	cfg := DefaultConfig("todos")
	cfg.Debounce = 0
	cfg.SettleDelay = 0
	cfg.Logger = log.New(io.Discard, "", 0)
	cfg.Notifier = rec
	cfg.Clock = func() time.Time {
		return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	}

	return New(st, state, cfg), st, state, rec
}

// seedTodo writes a framed document directly into the store and returns
// its version token.
func seedTodo(t *testing.T, st *memstore.Store, path, title, body string) string {
	t.Helper()

	fm := todo.Frontmatter{
		Title:      title,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Priority:   3,
		IsArchived: todo.IsArchivedPath(path),
	}
	content, err := todo.SerializeDocument(fm, body)
	if err != nil {
		t.Fatalf("SerializeDocument: %v", err)
	}
	st.Seed(path, content)
	return memstore.Version(content)
}

func mustRefresh(t *testing.T, e *Engine, opts RefreshOptions) {
	t.Helper()
	if err := e.Refresh(context.Background(), opts); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
}
