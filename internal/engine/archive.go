package engine

import (
	"context"
	"fmt"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// ToggleArchive moves the todo at path between the open and archived
// partitions.
//
// The partition is determined from the path alone. The frontmatter flag is
// flipped to keep the mirror honest, the document moves via the store's
// create+delete move operation, and a refetch without a preserve hint
// reconciles. When the moved document was the current selection in the
// open view, the selection is cleared afterwards since the item left the
// visible partition.
func (e *Engine) ToggleArchive(ctx context.Context, path string) error {
	t := e.Find(path)
	if t == nil {
		return fmt.Errorf("archive: no todo at %s: %w", path, store.ErrNotFound)
	}

	archived := t.Archived()

	e.mu.Lock()
	wasSelectedOpen := e.selectedID == t.ID && e.viewMode == todo.ViewOpen
	e.mu.Unlock()

	fm := t.Frontmatter
	fm.IsArchived = !archived
	content, err := todo.SerializeDocument(fm, t.Content)
	if err != nil {
		return err
	}

	if !archived {
		if err := e.store.EnsureDirectory(ctx, e.config.Root+"/"+store.ArchiveDirName); err != nil {
			return fmt.Errorf("archive: failed to ensure archive directory: %w", err)
		}
		message := e.commitMessage(ctx, "Archive "+t.Title, "Archive todo "+path)
		if err := e.store.MoveToArchive(ctx, path, content, message, e.config.Root); err != nil {
			return fmt.Errorf("archive: move failed for %s: %w", path, err)
		}
	} else {
		message := e.commitMessage(ctx, "Unarchive "+t.Title, "Unarchive todo "+path)
		if err := e.store.MoveFromArchive(ctx, path, content, message, e.config.Root); err != nil {
			return fmt.Errorf("unarchive: move failed for %s: %w", path, err)
		}
	}

	e.settle(ctx)

	if err := e.Refresh(ctx, RefreshOptions{ViewMode: e.ViewMode()}); err != nil {
		return err
	}

	if !archived && wasSelectedOpen {
		e.Select("")
	}
	return nil
}
