package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"conflict text", errors.New("409 Conflict: sha does not match"), ErrConflict},
		{"not found text", errors.New("fatal: path not found in HEAD"), ErrNotFound},
		{"auth text", errors.New("401 Unauthorized: bad credentials"), ErrAuth},
		{"forbidden text", errors.New("remote: Permission denied"), ErrForbidden},
		{"network text", errors.New("dial tcp: connection refused"), ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyPreservesTaggedErrors(t *testing.T) {
	wrapped := fmt.Errorf("write todos/x.md: %w", ErrConflict)
	got := Classify(wrapped)
	if got != wrapped {
		t.Errorf("Classify rewrote an already tagged error: %v", got)
	}
}

func TestClassifyUnknownPassthrough(t *testing.T) {
	err := errors.New("something entirely different")
	got := Classify(err)
	if got != err {
		t.Errorf("Classify should pass through unknown errors, got %v", got)
	}
	if Reason(got) != "unknown" {
		t.Errorf("Reason = %q, want unknown", Reason(got))
	}
}

func TestReason(t *testing.T) {
	if r := Reason(fmt.Errorf("x: %w", ErrNotFound)); r != "not-found" {
		t.Errorf("Reason = %q", r)
	}
	if r := Reason(nil); r != "" {
		t.Errorf("Reason(nil) = %q", r)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("w: %w", ErrConflict)) {
		t.Error("conflict should be retryable")
	}
	if IsRetryable(ErrNetwork) || IsRetryable(ErrAuth) || IsRetryable(nil) {
		t.Error("only conflicts are retryable")
	}
}

func TestArchivePathMapping(t *testing.T) {
	path := "todos/2025-01-01-thing.md"
	archived := ArchivePath(path, "todos")
	if archived != "todos/archive/2025-01-01-thing.md" {
		t.Errorf("ArchivePath = %q", archived)
	}
	back := UnarchivePath(archived, "todos")
	if back != path {
		t.Errorf("UnarchivePath = %q, want %q", back, path)
	}
}
