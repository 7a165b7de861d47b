package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// RefreshOptions controls one run of the fetch/filter pipeline.
type RefreshOptions struct {
	// ViewMode is the partition to display after the fetch. Empty
	// keeps the current mode. Callers that already know the mode
	// (a save's reconcile) pass it explicitly so a concurrent mode
	// change cannot redirect the refetch.
	ViewMode todo.ViewMode

	// PreservePath pins the selection across the refetch.
	PreservePath string

	// AllowCrossViewRestore permits the resolver to flip the view mode
	// to restore a persisted selection. Initial load only.
	AllowCrossViewRestore bool
}

// Refresh retrieves both partitions, rebuilds the collection and resolves
// the selection.
//
// The two listings run concurrently. A missing archive partition is
// normal and becomes an empty list; any other archive failure is also
// absorbed so partial results survive. A failed open-partition listing
// aborts the refresh with no state change, because losing connectivity
// must never silently drop the user's place.
//
// A refresh that was superseded by a newer one discards its results.
func (e *Engine) Refresh(ctx context.Context, opts RefreshOptions) error {
	seq := e.refreshSeq.Add(1)

	mode := opts.ViewMode
	if mode == "" {
		e.mu.Lock()
		mode = e.viewMode
		e.mu.Unlock()
	}

	openRefs, archivedRefs, err := e.listPartitions(ctx)
	if err != nil {
		e.logger.Printf("Refresh aborted (%s): %v", store.Reason(err), err)
		return err
	}

	refs := append(openRefs, archivedRefs...)
	all := make([]*todo.Todo, 0, len(refs))
	for _, ref := range refs {
		t, err := e.fetchOne(ctx, ref)
		if err != nil {
			e.logger.Printf("Skipping %s (%s): %v", ref.Path, store.Reason(err), err)
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	e.mu.Lock()
	if seq != e.refreshSeq.Load() {
		e.mu.Unlock()
		e.logger.Printf("Discarding stale refresh %d", seq)
		return nil
	}

	e.allTodos = all

	if len(all) == 0 {
		e.todos = nil
		e.selectedID = ""
		e.viewMode = mode
		e.mu.Unlock()

		if err := e.state.ClearSelectedID(); err != nil {
			e.logger.Printf("Failed to clear persisted selection: %v", err)
		}
		e.config.Notifier.RefreshCompleted(0, 0, mode)
		e.snapshot(ctx, nil)
		return nil
	}

	e.viewMode = mode
	e.todos = todo.FilterByView(all, mode)
	res := ResolveSelection(SelectionInput{
		Filtered:       e.todos,
		CurrentID:      e.selectedID,
		All:            all,
		PreservePath:   opts.PreservePath,
		PersistedID:    e.state.LoadSelectedID(),
		AllowCrossView: opts.AllowCrossViewRestore,
		ViewMode:       mode,
	})
	e.applySelectionLocked(res)
	total := len(all)
	visible := len(e.todos)
	finalMode := e.viewMode
	e.mu.Unlock()

	e.config.Notifier.RefreshCompleted(total, visible, finalMode)
	e.snapshot(ctx, all)
	return nil
}

// listPartitions issues the two listing requests concurrently.
func (e *Engine) listPartitions(ctx context.Context) (open, archived []store.DocRef, err error) {
	var (
		wg          sync.WaitGroup
		openErr     error
		archivedErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		open, openErr = e.store.ListDocuments(ctx, e.config.Root, false)
	}()
	go func() {
		defer wg.Done()
		archived, archivedErr = e.store.ListDocuments(ctx, e.config.Root, true)
	}()
	wg.Wait()

	if openErr != nil {
		if errors.Is(openErr, store.ErrNotFound) {
			open = nil
		} else {
			return nil, nil, fmt.Errorf("failed to list open partition: %w", openErr)
		}
	}
	if archivedErr != nil {
		// The archive directory legitimately may not exist yet; any
		// other failure still must not take down the open partition.
		if !errors.Is(archivedErr, store.ErrNotFound) {
			e.logger.Printf("Archive listing failed (%s), continuing with open partition: %v",
				store.Reason(archivedErr), archivedErr)
		}
		archived = nil
	}

	return open, archived, nil
}

// fetchOne reads and parses one listed document.
func (e *Engine) fetchOne(ctx context.Context, ref store.DocRef) (*todo.Todo, error) {
	content, err := e.store.ReadDocument(ctx, ref.Path)
	if err != nil {
		return nil, err
	}
	return todo.FromDocument(ref.Path, content, ref.Version)
}

// snapshot hands the collection to the configured Snapshotter.
func (e *Engine) snapshot(ctx context.Context, all []*todo.Todo) {
	if e.config.Snapshot == nil {
		return
	}
	if err := e.config.Snapshot.ReplaceAll(ctx, all); err != nil {
		e.logger.Printf("Snapshot update failed: %v", err)
	}
}
