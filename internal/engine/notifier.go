package engine

import (
	"time"

	"github.com/example/gitodo/internal/todo"
)

// SaveStep is one advisory progress state of an in-flight save.
type SaveStep string

const (
	// StepPreparing covers content assembly and the version refresh.
	StepPreparing SaveStep = "preparing"
	// StepResolvingConflict means a write hit a stale token and the
	// engine is refreshing it for another attempt.
	StepResolvingConflict SaveStep = "resolving-conflict"
	// StepRefreshing means the write landed and the reconciling
	// refetch is running.
	StepRefreshing SaveStep = "refreshing"
	// StepDone is the terminal success state.
	StepDone SaveStep = "done"
	// StepFailed is the terminal failure state.
	StepFailed SaveStep = "failed"
)

// String returns the step name.
func (s SaveStep) String() string { return string(s) }

// Notifier receives advisory engine events for UI consumption.
//
// Notifications never gate correctness; implementations must not block.
type Notifier interface {
	// SaveProgress reports a per-path save state transition. attempt is
	// meaningful for StepResolvingConflict and counts failed writes.
	SaveProgress(path string, step SaveStep, attempt int)

	// RefreshCompleted reports a committed refresh: collection size,
	// visible partition size and the active view mode.
	RefreshCompleted(total, visible int, mode todo.ViewMode)

	// SaveFailed reports a user-visible failure for path.
	SaveFailed(path string, err error)
}

// NopNotifier discards all events.
type NopNotifier struct{}

// SaveProgress implements Notifier.
func (NopNotifier) SaveProgress(string, SaveStep, int) {}

// RefreshCompleted implements Notifier.
func (NopNotifier) RefreshCompleted(int, int, todo.ViewMode) {}

// SaveFailed implements Notifier.
func (NopNotifier) SaveFailed(string, error) {}

// ProgressEvent is a recorded notification, used by tests and the
// dashboard bridge.
type ProgressEvent struct {
	Path    string
	Step    SaveStep
	Attempt int
	At      time.Time
}
