package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// stateFile is the on-disk shape of the persisted UI state.
type stateFile struct {
	SelectedID string            `json:"selectedId,omitempty"`
	ViewMode   string            `json:"viewMode,omitempty"`
	Drafts     map[string]string `json:"drafts,omitempty"`
}

// State is the persisted UI state store: the selected todo's version token,
// the active view mode, and unsaved drafts keyed by document path.
//
// Every mutation writes through to disk so a crash never loses the user's
// place. All methods are safe for concurrent use.
type State struct {
	mu   sync.Mutex
	path string
	data stateFile
}

// OpenState loads (or initializes) the state file at dir/state.json.
func OpenState(dir string) (*State, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &State{
		path: filepath.Join(dir, "state.json"),
		data: stateFile{Drafts: make(map[string]string)},
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if s.data.Drafts == nil {
		s.data.Drafts = make(map[string]string)
	}
	return s, nil
}

// flush writes the state to disk. Caller holds the lock.
func (s *State) flush() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// LoadSelectedID returns the persisted selection, or "".
func (s *State) LoadSelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SelectedID
}

// SaveSelectedID persists the selection.
func (s *State) SaveSelectedID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.SelectedID == id {
		return nil
	}
	s.data.SelectedID = id
	return s.flush()
}

// ClearSelectedID removes the persisted selection.
func (s *State) ClearSelectedID() error {
	return s.SaveSelectedID("")
}

// LoadViewMode returns the persisted view mode, or "".
func (s *State) LoadViewMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ViewMode
}

// SaveViewMode persists the view mode.
func (s *State) SaveViewMode(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.ViewMode == mode {
		return nil
	}
	s.data.ViewMode = mode
	return s.flush()
}

// SaveDraft stores unsaved content for a document path.
func (s *State) SaveDraft(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Drafts[path] = content
	return s.flush()
}

// LoadDraft returns the draft for path, or "" when none exists.
func (s *State) LoadDraft(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Drafts[path]
}

// ClearDraft removes the draft for path after a successful save.
func (s *State) ClearDraft(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Drafts[path]; !ok {
		return nil
	}
	delete(s.data.Drafts, path)
	return s.flush()
}
