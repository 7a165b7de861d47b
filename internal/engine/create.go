package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// defaultPriority is assigned to new todos; the scale runs 1 (highest)
// to 5.
const defaultPriority = 3

// Create writes a new todo with the given title and body and selects it.
//
// The storage key is derived from the title with today's date; collisions
// probe numeric suffixes the same way renames do. dueAt is optional.
func (e *Engine) Create(ctx context.Context, title, body string, dueAt *time.Time) (string, error) {
	key := todo.DeriveKey(e.config.Root+"/untitled.md", title, e.config.Clock())
	if key == "" {
		return "", fmt.Errorf("create: title %q produces an empty key: %w", title, store.ErrValidation)
	}

	target, err := e.probeFreeKey(ctx, key)
	if err != nil {
		return "", err
	}

	fm := todo.Frontmatter{
		Title:     title,
		CreatedAt: e.config.Clock().UTC(),
		DueAt:     dueAt,
		Priority:  defaultPriority,
	}
	content, err := todo.SerializeDocument(fm, body)
	if err != nil {
		return "", err
	}

	message := e.commitMessage(ctx, "Add "+title, "Add todo "+title)
	if _, err := e.store.WriteDocument(ctx, target, content, message, ""); err != nil {
		return "", fmt.Errorf("create: failed to write %s: %w", target, err)
	}

	e.settle(ctx)
	if err := e.Refresh(ctx, RefreshOptions{
		ViewMode:     todo.ViewOpen,
		PreservePath: target,
	}); err != nil {
		return target, err
	}
	return target, nil
}

// Delete removes the todo at path and reconciles.
func (e *Engine) Delete(ctx context.Context, path string) error {
	t := e.Find(path)
	if t == nil {
		return fmt.Errorf("delete: no todo at %s: %w", path, store.ErrNotFound)
	}

	message := e.commitMessage(ctx, "Remove "+t.Title, "Remove todo "+path)
	if err := e.store.DeleteDocument(ctx, path, message); err != nil {
		return fmt.Errorf("delete: failed for %s: %w", path, err)
	}

	if err := e.state.ClearDraft(path); err != nil {
		e.logger.Printf("Failed to clear draft for %s: %v", path, err)
	}

	e.mu.Lock()
	wasSelected := e.selectedID == t.ID
	e.mu.Unlock()
	if wasSelected {
		e.Select("")
	}

	e.settle(ctx)
	return e.Refresh(ctx, RefreshOptions{ViewMode: e.ViewMode()})
}
