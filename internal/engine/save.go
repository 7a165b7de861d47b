package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gitodo/internal/store"
	"github.com/example/gitodo/internal/todo"
)

// Save schedules a debounced write of newContent to path.
//
// Calls for the same path arriving within the debounce window
// cancel-and-replace each other; only the last one executes. This absorbs
// duplicate triggers from double-firing initialization. The view mode is
// pinned now, at trigger time, so the reconciling refetch cannot be
// redirected by a mode change that happens while the save runs.
//
// Outcomes are reported through the Notifier; use SaveNow for a
// synchronous error.
func (e *Engine) Save(ctx context.Context, path, newContent string, chatHistory []todo.ChatMessage) {
	mode := e.ViewMode()

	if e.config.Debounce <= 0 {
		e.saveWG.Add(1)
		defer e.saveWG.Done()
		if err := e.runSave(ctx, path, newContent, chatHistory, mode); err != nil {
			e.logger.Printf("Save %s failed: %v", path, err)
		}
		return
	}

	e.saveWG.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(e.config.Debounce, func() {
		defer e.saveWG.Done()
		e.sessions.clearTrigger(path, timer)
		if err := e.runSave(ctx, path, newContent, chatHistory, mode); err != nil {
			e.logger.Printf("Save %s failed: %v", path, err)
		}
	})
	if cancelled := e.sessions.replaceTrigger(path, timer); cancelled {
		// The replaced trigger never fired; release its accounting.
		e.saveWG.Done()
	}
}

// SaveNow writes immediately, bypassing the debounce window but honoring
// per-path mutual exclusion.
func (e *Engine) SaveNow(ctx context.Context, path, newContent string, chatHistory []todo.ChatMessage) error {
	e.saveWG.Add(1)
	defer e.saveWG.Done()
	return e.runSave(ctx, path, newContent, chatHistory, e.ViewMode())
}

// runSave is the single-flight save protocol for one path.
func (e *Engine) runSave(ctx context.Context, path, newContent string, chatHistory []todo.ChatMessage, mode todo.ViewMode) error {
	// Mutual exclusion: a second trigger while a save is in flight is
	// dropped, not queued. The debounce window upstream makes genuine
	// drops rare.
	if !e.sessions.begin(path, e.config.Clock()) {
		e.logger.Printf("Save %s dropped: already in flight", path)
		return nil
	}
	defer e.sessions.end(path)

	e.savesActive.Add(1)
	defer e.savesActive.Add(-1)

	notify := func(step SaveStep, attempt int) {
		e.sessions.setStep(path, step)
		e.config.Notifier.SaveProgress(path, step, attempt)
	}

	notify(StepPreparing, 0)

	content, err := e.assemble(path, newContent, chatHistory)
	if err != nil {
		notify(StepFailed, 0)
		e.config.Notifier.SaveFailed(path, err)
		return err
	}

	version := e.freshVersion(ctx, path)
	message := e.commitMessage(ctx, "Update "+path, "Update todo "+path)

	var writeErr error
	for attempt := 1; attempt <= e.config.MaxWriteAttempts; attempt++ {
		_, writeErr = e.store.WriteDocument(ctx, path, content, message, version)
		if writeErr == nil {
			break
		}
		if !store.IsRetryable(writeErr) || attempt == e.config.MaxWriteAttempts {
			break
		}

		// Stale token: refresh it and go again. Only the token is
		// refreshed, not the content, so concurrent edits to other
		// fields are overwritten last-writer-wins.
		notify(StepResolvingConflict, attempt)
		e.logger.Printf("Save %s: conflict on attempt %d, refreshing token", path, attempt)
		version = e.freshVersion(ctx, path)
	}

	if writeErr != nil {
		notify(StepFailed, 0)
		e.config.Notifier.SaveFailed(path, writeErr)
		return fmt.Errorf("failed to save %s: %w", path, writeErr)
	}

	if err := e.state.ClearDraft(path); err != nil {
		e.logger.Printf("Failed to clear draft for %s: %v", path, err)
	}

	notify(StepRefreshing, 0)
	if err := e.OnSaveCompleted(ctx, path, mode); err != nil {
		// The write landed; a failed reconcile must not report the
		// save as failed, just leave the stale view for the next
		// refresh.
		e.logger.Printf("Reconciling refetch after save of %s failed: %v", path, err)
	}

	notify(StepDone, 0)
	return nil
}

// assemble builds the full document for a save payload.
//
// Call sites deliver either raw markdown (body only) or an already-framed
// document with embedded frontmatter. A framed payload keeps its own
// metadata; a raw payload is merged into the todo's existing frontmatter.
func (e *Engine) assemble(path, newContent string, chatHistory []todo.ChatMessage) (string, error) {
	if todo.HasFrontmatter(newContent) {
		fm, body, _, err := todo.ParseDocument(newContent)
		if err != nil {
			return "", fmt.Errorf("invalid save payload for %s: %w", path, err)
		}
		if chatHistory != nil {
			fm.ChatHistory = chatHistory
		}
		return todo.SerializeDocument(fm, body)
	}

	var fm todo.Frontmatter
	if t := e.Find(path); t != nil {
		fm = t.Frontmatter
	} else {
		fm = todo.Frontmatter{
			CreatedAt: e.config.Clock().UTC(),
			Priority:  defaultPriority,
		}
	}
	if chatHistory != nil {
		fm.ChatHistory = chatHistory
	}
	return todo.SerializeDocument(fm, newContent)
}

// freshVersion re-reads the version token right before writing to minimize
// false conflicts. Best-effort: on failure the last known token is used.
func (e *Engine) freshVersion(ctx context.Context, path string) string {
	meta, err := e.store.ReadMetadata(ctx, path)
	if err == nil {
		return meta.Version
	}
	if !errors.Is(err, store.ErrNotFound) {
		e.logger.Printf("Version refresh for %s failed (%s), using last known token: %v",
			path, store.Reason(err), err)
	}
	if t := e.Find(path); t != nil {
		return t.Version
	}
	return ""
}

// SaveStepFor reports the advisory progress step for path, "" when idle.
func (e *Engine) SaveStepFor(path string) SaveStep {
	return e.sessions.Step(path)
}
