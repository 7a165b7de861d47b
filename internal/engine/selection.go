package engine

import (
	"github.com/example/gitodo/internal/todo"
)

// SelectionInput carries everything the resolver may consult.
type SelectionInput struct {
	// Filtered is the partition currently visible.
	Filtered []*todo.Todo

	// CurrentID is the selection before the refresh, possibly stale.
	CurrentID string

	// All is the unfiltered union of both partitions.
	All []*todo.Todo

	// PreservePath pins the selection to a path across a
	// write-triggered refetch, surviving the version-token change.
	PreservePath string

	// PersistedID is the selection saved in the client state store.
	PersistedID string

	// AllowCrossView permits switching the view mode to restore the
	// persisted selection from the other partition. Only the initial
	// load sets this; explicit tab navigation must never be overridden.
	AllowCrossView bool

	// ViewMode is the partition Filtered was computed from.
	ViewMode todo.ViewMode
}

// Resolution is the resolver's decision.
type Resolution struct {
	// SelectedID is the new selection, "" for none.
	SelectedID string

	// ViewMode is the partition to display. Differs from the input
	// mode only when cross-view restoration fired.
	ViewMode todo.ViewMode

	// ClearPersisted is set when the persisted selection turned out to
	// be stale and must be removed from the state store.
	ClearPersisted bool
}

// ResolveSelection decides which todo is selected after a refresh.
//
// Decision order, first match wins:
//
//  1. PreservePath names a visible todo: select it. Every
//     write-triggered refetch relies on this, because a write reassigns
//     the version token and rule 2 alone cannot recognize the document.
//  2. CurrentID still identifies a visible todo: keep it.
//  3. PersistedID found anywhere in the collection: select it, switching
//     the view mode when cross-view restoration is allowed; without that
//     permission a todo from the other partition is ignored. A persisted
//     id found nowhere is stale and gets cleared.
//  4. The first visible todo.
//  5. Nothing.
//
// The function is pure: it never touches engine state.
func ResolveSelection(in SelectionInput) Resolution {
	res := Resolution{ViewMode: in.ViewMode}

	// 1. Explicit preservation.
	if in.PreservePath != "" {
		if t := todo.FindByPath(in.Filtered, in.PreservePath); t != nil {
			res.SelectedID = t.ID
			return res
		}
	}

	// 2. Current selection still visible.
	if in.CurrentID != "" {
		if t := todo.FindByID(in.Filtered, in.CurrentID); t != nil {
			res.SelectedID = t.ID
			return res
		}
	}

	// 3. Persisted selection.
	if in.PersistedID != "" {
		if t := todo.FindByID(in.All, in.PersistedID); t != nil {
			if t.Partition() == in.ViewMode {
				res.SelectedID = t.ID
				return res
			}
			if in.AllowCrossView {
				res.ViewMode = t.Partition()
				res.SelectedID = t.ID
				return res
			}
			// Present but in the other partition and navigation was
			// explicit: fall through without clearing.
		} else {
			res.ClearPersisted = true
		}
	}

	// 4. First visible todo.
	if len(in.Filtered) > 0 {
		res.SelectedID = in.Filtered[0].ID
		return res
	}

	// 5. Nothing to select.
	return res
}
