// Package gitstore provides a git-backed implementation of the store
// contract.
//
// This package wraps git commands over a local clone. Version tokens are
// git blob hashes, so a document's token changes exactly when its content
// changes. Conflict detection compares the caller's expected token against
// the blob currently at HEAD before committing a write.
package gitstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/gitodo/internal/store"
)

// Store implements store.Store over the git CLI.
type Store struct {
	// repoRoot is the repository root directory path.
	repoRoot string

	logger *log.Logger
}

// New creates a git store for the repository at path.
// The path must be the root of an existing git clone.
func New(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[gitstore] ", log.LstdFlags)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = path
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", path, err)
	}

	return &Store{
		repoRoot: strings.TrimSpace(string(output)),
		logger:   logger,
	}, nil
}

// RepoRoot returns the repository root directory path.
func (s *Store) RepoRoot() string { return s.repoRoot }

// git executes a git command in the repository and returns its combined
// output. Failures are classified onto the store error taxonomy.
func (s *Store) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, store.Classify(fmt.Errorf("git %s failed: %w: %s",
			strings.Join(args, " "), err, strings.TrimSpace(string(output))))
	}
	return output, nil
}

// ListDocuments implements store.Store.
func (s *Store) ListDocuments(ctx context.Context, root string, archived bool) ([]store.DocRef, error) {
	dir := root
	if archived {
		dir = root + "/" + store.ArchiveDirName
	}

	output, err := s.git(ctx, "ls-tree", "HEAD", dir+"/")
	if err != nil {
		// A partition directory that was never created reports as a
		// missing tree path; surface it as NotFound so the fetch
		// pipeline can treat it as empty.
		if strings.Contains(err.Error(), "Not a valid object name") ||
			strings.Contains(err.Error(), "not a tree object") {
			return nil, fmt.Errorf("partition %s: %w", dir, store.ErrNotFound)
		}
		return nil, err
	}

	var refs []store.DocRef
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line == "" {
			continue
		}
		// Format: <mode> SP <type> SP <hash> TAB <path>
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		meta := strings.Fields(line[:tab])
		path := line[tab+1:]
		if len(meta) != 3 || meta[1] != "blob" {
			continue
		}
		if !strings.HasSuffix(path, ".md") {
			continue
		}
		refs = append(refs, store.DocRef{Path: path, Version: meta[2]})
	}

	if archived && len(refs) == 0 {
		return nil, fmt.Errorf("partition %s: %w", dir, store.ErrNotFound)
	}
	return refs, nil
}

// ReadDocument implements store.Store.
func (s *Store) ReadDocument(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "show", "HEAD:"+path)
	cmd.Dir = s.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, store.ErrNotFound)
	}
	return string(output), nil
}

// ReadMetadata implements store.Store.
func (s *Store) ReadMetadata(ctx context.Context, path string) (store.Metadata, error) {
	output, err := s.git(ctx, "rev-parse", "HEAD:"+path)
	if err != nil {
		return store.Metadata{}, fmt.Errorf("stat %s: %w", path, store.ErrNotFound)
	}
	return store.Metadata{Version: strings.TrimSpace(string(output))}, nil
}

// WriteDocument implements store.Store.
func (s *Store) WriteDocument(ctx context.Context, path, content, message, expectedVersion string) (store.Metadata, error) {
	if expectedVersion != "" {
		current, err := s.ReadMetadata(ctx, path)
		if err == nil && current.Version != expectedVersion {
			return store.Metadata{}, fmt.Errorf("write %s: expected %s, have %s: %w",
				path, shortToken(expectedVersion), shortToken(current.Version), store.ErrConflict)
		}
	}

	abs := filepath.Join(s.repoRoot, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return store.Metadata{}, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return store.Metadata{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := s.git(ctx, "add", "--", path); err != nil {
		return store.Metadata{}, err
	}
	if err := s.commit(ctx, message); err != nil {
		return store.Metadata{}, err
	}

	return s.ReadMetadata(ctx, path)
}

// DeleteDocument implements store.Store.
func (s *Store) DeleteDocument(ctx context.Context, path, message string) error {
	if _, err := s.git(ctx, "rm", "-q", "--", path); err != nil {
		return err
	}
	return s.commit(ctx, message)
}

// MoveToArchive implements store.Store.
func (s *Store) MoveToArchive(ctx context.Context, path, content, message, root string) error {
	return s.move(ctx, path, store.ArchivePath(path, root), content, message)
}

// MoveFromArchive implements store.Store.
func (s *Store) MoveFromArchive(ctx context.Context, path, content, message, root string) error {
	return s.move(ctx, path, store.UnarchivePath(path, root), content, message)
}

// move writes content at dest and removes src in a single commit.
func (s *Store) move(ctx context.Context, src, dest, content, message string) error {
	abs := filepath.Join(s.repoRoot, filepath.FromSlash(dest))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if _, err := s.git(ctx, "add", "--", dest); err != nil {
		return err
	}
	if _, err := s.git(ctx, "rm", "-q", "--ignore-unmatch", "--", src); err != nil {
		return err
	}
	return s.commit(ctx, message)
}

// EnsureDirectory implements store.Store. Git does not track empty
// directories, so a .gitkeep placeholder is committed when the directory
// has no tracked content yet.
func (s *Store) EnsureDirectory(ctx context.Context, path string) error {
	if output, err := s.git(ctx, "ls-tree", "HEAD", path+"/"); err == nil &&
		len(strings.TrimSpace(string(output))) > 0 {
		return nil
	}

	keep := path + "/.gitkeep"
	abs := filepath.Join(s.repoRoot, filepath.FromSlash(keep))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	if err := os.WriteFile(abs, nil, 0644); err != nil {
		return fmt.Errorf("failed to write placeholder in %s: %w", path, err)
	}
	if _, err := s.git(ctx, "add", "--", keep); err != nil {
		return err
	}
	return s.commit(ctx, "Create "+path+" directory")
}

// commit records staged changes. An empty diff is not an error; repeated
// saves of identical content are treated as a no-op.
func (s *Store) commit(ctx context.Context, message string) error {
	if message == "" {
		message = "Update todo"
	}
	output, err := s.git(ctx, "commit", "-q", "-m", message)
	if err != nil {
		if strings.Contains(string(output), "nothing to commit") ||
			strings.Contains(err.Error(), "nothing to commit") {
			return nil
		}
		return err
	}
	s.logger.Printf("Committed: %s", message)
	return nil
}

func shortToken(v string) string {
	if len(v) > 8 {
		return v[:8]
	}
	return v
}
