// Package todo provides the data structures for todo documents stored in a
// remote versioned store.
//
// A todo is a markdown document with YAML frontmatter. Its durable identity
// is its storage path; the ID and Version fields hold the remote content
// hash, which is reassigned on every successful write and must never be used
// as a stable identity.
package todo

import (
	"regexp"
	"strings"
	"time"
)

// ViewMode selects which partition of the collection is visible.
type ViewMode string

const (
	// ViewOpen shows todos outside the archive partition.
	ViewOpen ViewMode = "open"
	// ViewArchived shows todos inside the archive partition.
	ViewArchived ViewMode = "archived"
)

// String returns the view mode name.
func (m ViewMode) String() string { return string(m) }

// ChatMessage is one entry of the AI conversation attached to a todo.
type ChatMessage struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// Frontmatter holds the structured metadata embedded at the top of a todo
// document.
//
// IsArchived mirrors the storage partition for display purposes only; the
// authoritative partition test is IsArchivedPath on the document path.
type Frontmatter struct {
	Title       string        `yaml:"title" json:"title"`
	CreatedAt   time.Time     `yaml:"createdAt" json:"createdAt"`
	DueAt       *time.Time    `yaml:"dueAt,omitempty" json:"dueAt,omitempty"`
	Priority    int           `yaml:"priority" json:"priority"`
	IsArchived  bool          `yaml:"isArchived" json:"isArchived"`
	ChatHistory []ChatMessage `yaml:"chatHistory,omitempty" json:"chatHistory,omitempty"`
}

// Todo is one logical document in the collection.
type Todo struct {
	// ID is the remote version token at the time of the last fetch.
	// It changes on every successful write.
	ID string

	// Title is the display title, taken from frontmatter when present.
	Title string

	// Content is the markdown body without the frontmatter block.
	Content string

	// Frontmatter is the parsed metadata block.
	Frontmatter Frontmatter

	// Path is the storage path and the stable logical identity.
	Path string

	// Version is the remote version token used for optimistic-concurrency
	// writes. Identical to ID after a fetch.
	Version string
}

// Archived reports whether the todo lives in the archive partition,
// determined solely from its path.
func (t *Todo) Archived() bool {
	return IsArchivedPath(t.Path)
}

// Partition returns the view mode this todo belongs to.
func (t *Todo) Partition() ViewMode {
	if t.Archived() {
		return ViewArchived
	}
	return ViewOpen
}

// IsArchivedPath reports whether path contains an /archive/ segment.
// This is the sole source of truth for partition membership.
func IsArchivedPath(path string) bool {
	if strings.HasPrefix(path, "archive/") {
		return true
	}
	return strings.Contains(path, "/archive/")
}

// FilterByView returns the todos belonging to the given view mode,
// preserving order. The result is always a fresh slice.
func FilterByView(all []*Todo, mode ViewMode) []*Todo {
	filtered := make([]*Todo, 0, len(all))
	for _, t := range all {
		if t.Partition() == mode {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// FindByID returns the todo with the given version token, or nil.
func FindByID(todos []*Todo, id string) *Todo {
	if id == "" {
		return nil
	}
	for _, t := range todos {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// FindByPath returns the todo with the given path, or nil.
func FindByPath(todos []*Todo, path string) *Todo {
	if path == "" {
		return nil
	}
	for _, t := range todos {
		if t.Path == path {
			return t
		}
	}
	return nil
}

// datePrefix matches a YYYY-MM-DD prefix on a document filename.
var datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)

// DateFromPath extracts the YYYY-MM-DD component from the filename of path.
// Returns "" when the filename has no date prefix.
func DateFromPath(path string) string {
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	m := datePrefix.FindStringSubmatch(base)
	if m == nil {
		return ""
	}
	return m[1]
}
