package settings

import (
	"testing"
)

func TestStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenState(dir)
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}

	if err := s.SaveSelectedID("abc123"); err != nil {
		t.Fatalf("SaveSelectedID: %v", err)
	}
	if err := s.SaveViewMode("archived"); err != nil {
		t.Fatalf("SaveViewMode: %v", err)
	}
	if err := s.SaveDraft("todos/2025-01-01-a.md", "draft body"); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	reopened, err := OpenState(dir)
	if err != nil {
		t.Fatalf("OpenState (reopen): %v", err)
	}
	if got := reopened.LoadSelectedID(); got != "abc123" {
		t.Errorf("SelectedID = %q", got)
	}
	if got := reopened.LoadViewMode(); got != "archived" {
		t.Errorf("ViewMode = %q", got)
	}
	if got := reopened.LoadDraft("todos/2025-01-01-a.md"); got != "draft body" {
		t.Errorf("Draft = %q", got)
	}
}

func TestClearSelectedID(t *testing.T) {
	s, err := OpenState(t.TempDir())
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}

	if err := s.SaveSelectedID("abc"); err != nil {
		t.Fatalf("SaveSelectedID: %v", err)
	}
	if err := s.ClearSelectedID(); err != nil {
		t.Fatalf("ClearSelectedID: %v", err)
	}
	if got := s.LoadSelectedID(); got != "" {
		t.Errorf("SelectedID = %q, want empty", got)
	}
}

func TestClearDraft(t *testing.T) {
	s, err := OpenState(t.TempDir())
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}

	if err := s.SaveDraft("p", "content"); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := s.ClearDraft("p"); err != nil {
		t.Fatalf("ClearDraft: %v", err)
	}
	if got := s.LoadDraft("p"); got != "" {
		t.Errorf("Draft = %q, want empty", got)
	}
	// Clearing an absent draft is a no-op.
	if err := s.ClearDraft("missing"); err != nil {
		t.Errorf("ClearDraft(missing): %v", err)
	}
}
