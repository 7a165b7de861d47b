package engine

import (
	"sync"
	"time"
)

// saveSession tracks one in-flight save. Existence of an entry in the
// session set is the mutual-exclusion flag for its path.
type saveSession struct {
	step      SaveStep
	startedAt time.Time
}

// pendingTrigger is a debounce timer waiting to fire for a path.
type pendingTrigger struct {
	timer *time.Timer
}

// sessionSet owns all mutable save bookkeeping: the in-flight session per
// path and the pending debounce trigger per path. It is the only place
// that state lives, and it is exposed only through begin/end/replace
// operations that enforce the invariants.
type sessionSet struct {
	mu       sync.Mutex
	inflight map[string]*saveSession
	pending  map[string]*pendingTrigger
}

func newSessionSet() *sessionSet {
	return &sessionSet{
		inflight: make(map[string]*saveSession),
		pending:  make(map[string]*pendingTrigger),
	}
}

// begin claims the in-flight slot for path. Returns false when a save for
// the same path is already running; the caller must drop its attempt.
func (s *sessionSet) begin(path string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[path]; busy {
		return false
	}
	s.inflight[path] = &saveSession{step: StepPreparing, startedAt: now}
	return true
}

// end releases the in-flight slot. Must run regardless of outcome.
func (s *sessionSet) end(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, path)
}

// setStep records the current advisory step for an in-flight path.
func (s *sessionSet) setStep(path string, step SaveStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.inflight[path]; ok {
		sess.step = step
	}
}

// Step returns the advisory step for path, or "" when idle.
func (s *sessionSet) Step(path string) SaveStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.inflight[path]; ok {
		return sess.step
	}
	return ""
}

// replaceTrigger installs timer as the pending debounce trigger for path,
// cancelling any previous one. Returns true when a previous un-fired
// trigger was cancelled (the caller must release its accounting).
func (s *sessionSet) replaceTrigger(path string, timer *time.Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := false
	if prev, ok := s.pending[path]; ok {
		cancelled = prev.timer.Stop()
	}
	s.pending[path] = &pendingTrigger{timer: timer}
	return cancelled
}

// clearTrigger removes the pending entry for path once its timer fired.
// The entry is left alone when a newer trigger has already replaced it.
func (s *sessionSet) clearTrigger(path string, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.pending[path]; ok && cur.timer == timer {
		delete(s.pending, path)
	}
}
