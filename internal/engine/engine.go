// Package engine implements the todo synchronization and
// optimistic-concurrency engine.
//
// The engine keeps a local, optimistic view of a todo collection stored in
// a remote versioned document store. It owns the only shared mutable state:
// the in-memory collection and the current selection. The fetch pipeline
// and selection resolver are the sole writers of that state; the save,
// rename and archive coordinators never mutate it directly and instead
// terminate by requesting a reconciling refetch.
//
// A document's durable identity is its storage path. Its version token
// changes on every successful write, which is why every write-triggered
// refetch carries a preserve-path hint to keep the user on the document
// they just edited.
package engine

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/gitodo/internal/settings"
	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// CommitMessager produces commit messages for store mutations.
// Implementations are best-effort; the engine falls back to a plain
// message when generation fails.
type CommitMessager interface {
	GenerateCommitMessage(ctx context.Context, description string) (string, error)
}

// Snapshotter receives the full collection after each successful refresh.
// Used for the offline listing cache; failures are logged, never fatal.
type Snapshotter interface {
	ReplaceAll(ctx context.Context, todos []*todo.Todo) error
}

// Config holds engine tuning knobs.
type Config struct {
	// Root is the directory inside the store that holds the documents.
	Root string

	// Debounce is how long duplicate save triggers for the same path
	// cancel-and-replace each other before one executes.
	Debounce time.Duration

	// SettleDelay is the pause after a create or delete before the
	// reconciling refetch, giving the remote listing time to catch up.
	SettleDelay time.Duration

	// MaxWriteAttempts bounds conflict-retry writes, counting the first
	// attempt.
	MaxWriteAttempts int

	// Logger for engine activity.
	Logger *log.Logger

	// Notifier receives advisory progress events. Never gates
	// correctness.
	Notifier Notifier

	// Commits generates commit messages. Optional.
	Commits CommitMessager

	// Snapshot receives collection snapshots. Optional.
	Snapshot Snapshotter

	// Clock returns the current time. Tests substitute a fixed clock.
	Clock func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(root string) *Config {
	return &Config{
		Root:             root,
		Debounce:         100 * time.Millisecond,
		SettleDelay:      250 * time.Millisecond,
		MaxWriteAttempts: 3,
		Logger:           log.New(os.Stderr, "[engine] ", log.LstdFlags),
		Notifier:         NopNotifier{},
		Clock:            time.Now,
	}
}

// Engine coordinates fetching, selection, saving, renaming and archiving.
type Engine struct {
	store  store.Store
	state  *settings.State
	config *Config
	logger *log.Logger

	mu sync.Mutex
	// allTodos is the union of both partitions; todos is always a pure
	// filter of allTodos by viewMode.
	allTodos   []*todo.Todo
	todos      []*todo.Todo
	selectedID string
	viewMode   todo.ViewMode

	// sessions owns the per-path in-flight and debounce bookkeeping.
	sessions *sessionSet

	// refreshSeq emulates cancellation: only the most recently issued
	// refresh may commit its results.
	refreshSeq atomic.Uint64

	// savesActive suppresses the view-mode-triggered refetch while a
	// save's own reconciling refetch is pending.
	savesActive atomic.Int32

	// saveWG tracks scheduled and in-flight saves so Flush can wait.
	saveWG sync.WaitGroup
}

// New creates an engine over the given store and persisted state.
func New(st store.Store, state *settings.State, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig("todos")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.MaxWriteAttempts <= 0 {
		cfg.MaxWriteAttempts = 3
	}

	return &Engine{
		store:    st,
		state:    state,
		config:   cfg,
		logger:   cfg.Logger,
		viewMode: todo.ViewOpen,
		sessions: newSessionSet(),
	}
}

// Todos returns the currently visible partition.
func (e *Engine) Todos() []*todo.Todo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*todo.Todo, len(e.todos))
	copy(out, e.todos)
	return out
}

// AllTodos returns the union of both partitions.
func (e *Engine) AllTodos() []*todo.Todo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*todo.Todo, len(e.allTodos))
	copy(out, e.allTodos)
	return out
}

// SelectedID returns the version token of the current selection, or "".
func (e *Engine) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// Selected returns the currently selected todo, or nil.
func (e *Engine) Selected() *todo.Todo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return todo.FindByID(e.allTodos, e.selectedID)
}

// ViewMode returns the active view mode.
func (e *Engine) ViewMode() todo.ViewMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewMode
}

// Find returns the todo with the given path from the full collection.
func (e *Engine) Find(path string) *todo.Todo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return todo.FindByPath(e.allTodos, path)
}

// Flush blocks until every scheduled or in-flight save has finished.
func (e *Engine) Flush() {
	e.saveWG.Wait()
}

// OnSettingsLoaded performs the initial load: restore the persisted view
// mode, then fetch with cross-view restoration allowed so a session pinned
// to an archived item comes back where it left off.
//
// State written: allTodos, todos, viewMode, selectedID.
func (e *Engine) OnSettingsLoaded(ctx context.Context) error {
	mode := todo.ViewMode(e.state.LoadViewMode())
	if mode != todo.ViewOpen && mode != todo.ViewArchived {
		mode = todo.ViewOpen
	}

	e.mu.Lock()
	e.viewMode = mode
	e.mu.Unlock()

	return e.Refresh(ctx, RefreshOptions{
		ViewMode:              mode,
		AllowCrossViewRestore: true,
	})
}

// OnViewModeChanged switches the visible partition.
//
// The local filter updates immediately. The refetch that normally follows
// is suppressed while a save is in flight, so the save's own reconciling
// refetch (which pins the mode it started under) cannot be raced by this
// one. Cross-view restoration is never allowed here: the user explicitly
// navigated, and the engine must not fight that choice.
//
// State written: viewMode, todos, selectedID.
func (e *Engine) OnViewModeChanged(ctx context.Context, mode todo.ViewMode) error {
	e.mu.Lock()
	e.viewMode = mode
	e.todos = todo.FilterByView(e.allTodos, mode)
	res := ResolveSelection(SelectionInput{
		Filtered:    e.todos,
		CurrentID:   e.selectedID,
		All:         e.allTodos,
		PersistedID: e.state.LoadSelectedID(),
		ViewMode:    mode,
	})
	e.applySelectionLocked(res)
	e.mu.Unlock()

	if err := e.state.SaveViewMode(mode.String()); err != nil {
		e.logger.Printf("Failed to persist view mode: %v", err)
	}

	if e.savesActive.Load() > 0 {
		e.logger.Printf("View mode refetch suppressed: save in flight")
		return nil
	}

	return e.Refresh(ctx, RefreshOptions{ViewMode: mode})
}

// OnSaveCompleted is the reconciling refetch after a successful write. The
// preserve-path hint survives the version-token change the write caused,
// and the view mode is the one pinned when the save began, not re-derived.
//
// State written: allTodos, todos, selectedID.
func (e *Engine) OnSaveCompleted(ctx context.Context, path string, mode todo.ViewMode) error {
	return e.Refresh(ctx, RefreshOptions{
		ViewMode:     mode,
		PreservePath: path,
	})
}

// applySelectionLocked commits a selection resolution. Caller holds e.mu.
func (e *Engine) applySelectionLocked(res Resolution) {
	if res.ViewMode != "" && res.ViewMode != e.viewMode {
		e.viewMode = res.ViewMode
		e.todos = todo.FilterByView(e.allTodos, res.ViewMode)
		if err := e.state.SaveViewMode(res.ViewMode.String()); err != nil {
			e.logger.Printf("Failed to persist view mode: %v", err)
		}
	}

	e.selectedID = res.SelectedID

	if res.ClearPersisted {
		if err := e.state.ClearSelectedID(); err != nil {
			e.logger.Printf("Failed to clear persisted selection: %v", err)
		}
		return
	}
	if res.SelectedID != "" {
		if err := e.state.SaveSelectedID(res.SelectedID); err != nil {
			e.logger.Printf("Failed to persist selection: %v", err)
		}
	}
}

// Select marks the todo with the given version token as selected and
// persists the choice.
func (e *Engine) Select(id string) {
	e.mu.Lock()
	e.selectedID = id
	e.mu.Unlock()

	if id == "" {
		if err := e.state.ClearSelectedID(); err != nil {
			e.logger.Printf("Failed to clear persisted selection: %v", err)
		}
		return
	}
	if err := e.state.SaveSelectedID(id); err != nil {
		e.logger.Printf("Failed to persist selection: %v", err)
	}
}

// settle pauses so the remote listing can observe a create or delete
// before the reconciling refetch runs.
func (e *Engine) settle(ctx context.Context) {
	if e.config.SettleDelay <= 0 {
		return
	}
	select {
	case <-time.After(e.config.SettleDelay):
	case <-ctx.Done():
	}
}

// commitMessage builds a commit message for a mutation, using the
// configured generator when available.
func (e *Engine) commitMessage(ctx context.Context, fallback, description string) string {
	if e.config.Commits == nil {
		return fallback
	}
	msg, err := e.config.Commits.GenerateCommitMessage(ctx, description)
	if err != nil || msg == "" {
		e.logger.Printf("Commit message generation failed, using fallback: %v", err)
		return fallback
	}
	return msg
}
