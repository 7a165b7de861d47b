// Package cache provides the local SQLite snapshot of the todo collection.
//
// After every successful refresh the engine replaces the snapshot with the
// freshly fetched collection, so the CLI can list todos instantly while
// offline. The snapshot is strictly derived data: it is never written back
// to the remote store and can always be rebuilt by a refresh.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/gitodo/internal/todo"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the snapshot database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the snapshot database at path.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	// WAL mode for concurrent reads while a refresh writes
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	// Flush the WAL so a plain file copy of the snapshot is complete.
	_, _ = db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	db.conn = nil
	return nil
}

// initSchema creates the snapshot table. Idempotent.
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS todos (
		path TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 3,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT,
		due_at TEXT,
		chat_history TEXT,  -- JSON array
		snapshotted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_todos_archived ON todos(is_archived);
	CREATE INDEX IF NOT EXISTS idx_todos_priority ON todos(priority);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// ReplaceAll swaps the snapshot for the given collection in one
// transaction. A nil slice empties the snapshot.
func (db *DB) ReplaceAll(ctx context.Context, todos []*todo.Todo) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM todos"); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range todos {
		history, err := json.Marshal(t.Frontmatter.ChatHistory)
		if err != nil {
			return fmt.Errorf("failed to serialize chat history for %s: %w", t.Path, err)
		}

		var createdAt, dueAt any
		if !t.Frontmatter.CreatedAt.IsZero() {
			createdAt = t.Frontmatter.CreatedAt.UTC().Format(time.RFC3339)
		}
		if t.Frontmatter.DueAt != nil {
			dueAt = t.Frontmatter.DueAt.UTC().Format(time.RFC3339)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO todos (path, version, title, content, priority, is_archived,
				created_at, due_at, chat_history, snapshotted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Path, t.Version, t.Title, t.Content, t.Frontmatter.Priority,
			boolToInt(t.Archived()), createdAt, dueAt, string(history), now)
		if err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", t.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ListTodos returns the snapshotted todos of one partition, ordered by
// path.
func (db *DB) ListTodos(ctx context.Context, mode todo.ViewMode) ([]*todo.Todo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, version, title, content, priority, is_archived,
			created_at, due_at, chat_history
		FROM todos WHERE is_archived = ? ORDER BY path`,
		boolToInt(mode == todo.ViewArchived))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var out []*todo.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	return out, nil
}

func scanTodo(rows *sql.Rows) (*todo.Todo, error) {
	var (
		t          todo.Todo
		archived   int
		createdAt  sql.NullString
		dueAt      sql.NullString
		historyRaw sql.NullString
	)
	if err := rows.Scan(&t.Path, &t.Version, &t.Title, &t.Content,
		&t.Frontmatter.Priority, &archived, &createdAt, &dueAt, &historyRaw); err != nil {
		return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	t.ID = t.Version
	t.Frontmatter.Title = t.Title
	t.Frontmatter.IsArchived = archived != 0

	if createdAt.Valid && createdAt.String != "" {
		ts, err := time.Parse(time.RFC3339, createdAt.String)
		if err == nil {
			t.Frontmatter.CreatedAt = ts
		}
	}
	if dueAt.Valid && dueAt.String != "" {
		ts, err := time.Parse(time.RFC3339, dueAt.String)
		if err == nil {
			t.Frontmatter.DueAt = &ts
		}
	}
	if historyRaw.Valid && historyRaw.String != "" && historyRaw.String != "null" {
		if err := json.Unmarshal([]byte(historyRaw.String), &t.Frontmatter.ChatHistory); err != nil {
			return nil, fmt.Errorf("failed to parse chat history for %s: %w", t.Path, err)
		}
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
