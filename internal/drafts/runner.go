package drafts

import (
	"context"
	"log"

	"github.com/example/gitodo/internal/todo"
)

// Saver is the subset of the engine the runner drives. Save is expected to
// debounce internally; the runner forwards every write event.
type Saver interface {
	Save(ctx context.Context, path, newContent string, chatHistory []todo.ChatMessage)
}

// DraftStore persists draft content so an edit survives a crash before its
// save lands.
type DraftStore interface {
	SaveDraft(path, content string) error
	ClearDraft(path string) error
}

// Runner consumes watcher events and routes them into the save pipeline.
type Runner struct {
	watcher *Watcher
	saver   Saver
	state   DraftStore
	logger  *log.Logger
}

// NewRunner wires a watcher to the save pipeline.
func NewRunner(watcher *Watcher, saver Saver, state DraftStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		watcher: watcher,
		saver:   saver,
		state:   state,
		logger:  logger,
	}
}

// Run processes events until the watcher is stopped or ctx is cancelled.
//
// On a write the draft is persisted to local state before the save is
// triggered; the engine clears the draft once the save lands.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-r.watcher.Events():
			if !ok {
				return
			}
			r.handle(ctx, ev)

		case err, ok := <-r.watcher.Errors():
			if !ok {
				return
			}
			r.logger.Printf("Draft watcher error: %v", err)
		}
	}
}

func (r *Runner) handle(ctx context.Context, ev DraftEvent) {
	switch ev.Op {
	case OpWrite:
		if err := r.state.SaveDraft(ev.Key, ev.Content); err != nil {
			r.logger.Printf("Failed to persist draft for %s: %v", ev.Key, err)
		}
		r.logger.Printf("Draft written for %s, scheduling save", ev.Key)
		r.saver.Save(ctx, ev.Key, ev.Content, nil)

	case OpDelete:
		if err := r.state.ClearDraft(ev.Key); err != nil {
			r.logger.Printf("Failed to clear draft for %s: %v", ev.Key, err)
		}
		r.logger.Printf("Draft removed for %s", ev.Key)
	}
}
