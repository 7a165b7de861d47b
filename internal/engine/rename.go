package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// RenameIfNeeded retitles the todo at path, migrating it to a new storage
// key when the slug changed.
//
// The date component of the key is reused from the existing path. When the
// canonical key is already taken, numeric suffixes -1, -2, ... are probed
// against the store until a free key is found. The migration writes the
// new document first and deletes the old one after, so a crash in between
// duplicates rather than loses the todo.
//
// A title edit that does not change the slug updates content in place
// through the single-write save path; the filename then keeps the old
// slug, which is accepted: the displayed title and the filename may
// diverge indefinitely.
func (e *Engine) RenameIfNeeded(ctx context.Context, path, newTitle string) error {
	t := e.Find(path)
	if t == nil {
		return fmt.Errorf("rename: no todo at %s: %w", path, store.ErrNotFound)
	}

	newKey := todo.DeriveKey(path, newTitle, e.config.Clock())
	if newKey == "" {
		return fmt.Errorf("rename: title %q produces an empty key: %w", newTitle, store.ErrValidation)
	}

	fm := t.Frontmatter
	fm.Title = newTitle

	if newKey == path {
		content, err := todo.SerializeDocument(fm, t.Content)
		if err != nil {
			return err
		}
		return e.SaveNow(ctx, path, content, nil)
	}

	target, err := e.probeFreeKey(ctx, newKey)
	if err != nil {
		return err
	}

	content, err := todo.SerializeDocument(fm, t.Content)
	if err != nil {
		return err
	}

	message := e.commitMessage(ctx, "Rename to "+newTitle,
		fmt.Sprintf("Rename %s to %s", path, target))

	if _, err := e.store.WriteDocument(ctx, target, content, message, ""); err != nil {
		return fmt.Errorf("rename: failed to write %s: %w", target, err)
	}
	if err := e.store.DeleteDocument(ctx, path, message); err != nil {
		return fmt.Errorf("rename: failed to delete %s: %w", path, err)
	}

	e.settle(ctx)
	return e.Refresh(ctx, RefreshOptions{
		ViewMode:     e.ViewMode(),
		PreservePath: target,
	})
}

// probeFreeKey returns key itself when unused, else the first free
// suffixed variant. Each candidate is probed against the store before use.
func (e *Engine) probeFreeKey(ctx context.Context, key string) (string, error) {
	candidate := key
	for i := 1; ; i++ {
		_, err := e.store.ReadMetadata(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("rename: failed to probe %s: %w", candidate, err)
		}
		candidate = suffixKey(key, i)
	}
}

// suffixKey inserts -n before the extension: a.md -> a-1.md.
func suffixKey(key string, n int) string {
	base := strings.TrimSuffix(key, ".md")
	return fmt.Sprintf("%s-%d.md", base, n)
}
