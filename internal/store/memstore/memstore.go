// Package memstore provides an in-memory Store implementation.
//
// It backs tests and the demo mode of the CLI. Version tokens are SHA-1
// content hashes, matching the behavior of git-backed stores: every write
// of different content yields a different token. Failure injection hooks
// allow tests to script conflicts and partition outages.
package memstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/gitodo/internal/store"
)

// Store is an in-memory implementation of store.Store.
//
// The zero value is not usable; call New.
type Store struct {
	mu   sync.Mutex
	docs map[string]string // path -> content

	// WriteAttempts counts calls to WriteDocument, including failed ones.
	writeAttempts int

	// conflictsLeft forces the next n writes to fail with ErrConflict
	// regardless of the expected version.
	conflictsLeft int

	// listErr, when set for a partition, makes ListDocuments fail.
	listErr map[bool]error

	// readErr, when set, makes ReadDocument and ReadMetadata fail for
	// the given path.
	readErr map[string]error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs:    make(map[string]string),
		listErr: make(map[bool]error),
		readErr: make(map[string]error),
	}
}

// Seed inserts a document directly, bypassing attempt counting.
func (s *Store) Seed(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = content
}

// Content returns the stored content and whether the path exists.
func (s *Store) Content(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.docs[path]
	return c, ok
}

// WriteAttempts reports how many times WriteDocument ran.
func (s *Store) WriteAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAttempts
}

// FailNextWrites makes the next n writes report ErrConflict.
func (s *Store) FailNextWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflictsLeft = n
}

// FailList makes listing the given partition return err until cleared with
// a nil err.
func (s *Store) FailList(archived bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.listErr, archived)
		return
	}
	s.listErr[archived] = err
}

// FailRead makes reads of path return err until cleared with a nil err.
func (s *Store) FailRead(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.readErr, path)
		return
	}
	s.readErr[path] = err
}

// Version computes the token the store would report for content.
func Version(content string) string {
	// Matches git's blob hashing so tokens look like real ones.
	header := fmt.Sprintf("blob %d\x00", len(content))
	sum := sha1.Sum([]byte(header + content))
	return hex.EncodeToString(sum[:])
}

// ListDocuments implements store.Store.
func (s *Store) ListDocuments(ctx context.Context, root string, archived bool) ([]store.DocRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.listErr[archived]; err != nil {
		return nil, err
	}

	prefix := root + "/"
	archivePrefix := root + "/" + store.ArchiveDirName + "/"

	var refs []store.DocRef
	seen := false
	for path, content := range s.docs {
		inArchive := strings.HasPrefix(path, archivePrefix)
		if archived != inArchive {
			continue
		}
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if !strings.HasSuffix(path, ".md") {
			continue
		}
		// Nested directories other than archive/ are out of scope.
		rel := strings.TrimPrefix(path, prefix)
		if inArchive {
			rel = strings.TrimPrefix(path, archivePrefix)
		}
		if strings.Contains(rel, "/") {
			continue
		}
		seen = true
		refs = append(refs, store.DocRef{Path: path, Version: Version(content)})
	}

	if archived && !seen {
		// Mirrors remote providers where an empty archive directory
		// does not exist at all.
		return nil, fmt.Errorf("partition %s/%s: %w", root, store.ArchiveDirName, store.ErrNotFound)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// ReadDocument implements store.Store.
func (s *Store) ReadDocument(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readErr[path]; err != nil {
		return "", err
	}
	content, ok := s.docs[path]
	if !ok {
		return "", fmt.Errorf("read %s: %w", path, store.ErrNotFound)
	}
	return content, nil
}

// ReadMetadata implements store.Store.
func (s *Store) ReadMetadata(ctx context.Context, path string) (store.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readErr[path]; err != nil {
		return store.Metadata{}, err
	}
	content, ok := s.docs[path]
	if !ok {
		return store.Metadata{}, fmt.Errorf("stat %s: %w", path, store.ErrNotFound)
	}
	return store.Metadata{Version: Version(content)}, nil
}

// WriteDocument implements store.Store.
func (s *Store) WriteDocument(ctx context.Context, path, content, message, expectedVersion string) (store.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeAttempts++

	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return store.Metadata{}, fmt.Errorf("write %s: %w", path, store.ErrConflict)
	}

	if existing, ok := s.docs[path]; ok && expectedVersion != "" {
		if Version(existing) != expectedVersion {
			return store.Metadata{}, fmt.Errorf("write %s: %w", path, store.ErrConflict)
		}
	}

	s.docs[path] = content
	return store.Metadata{Version: Version(content)}, nil
}

// DeleteDocument implements store.Store.
func (s *Store) DeleteDocument(ctx context.Context, path, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[path]; !ok {
		return fmt.Errorf("delete %s: %w", path, store.ErrNotFound)
	}
	delete(s.docs, path)
	return nil
}

// MoveToArchive implements store.Store.
func (s *Store) MoveToArchive(ctx context.Context, path, content, message, root string) error {
	dest := store.ArchivePath(path, root)
	if _, err := s.WriteDocument(ctx, dest, content, message, ""); err != nil {
		return err
	}
	return s.DeleteDocument(ctx, path, message)
}

// MoveFromArchive implements store.Store.
func (s *Store) MoveFromArchive(ctx context.Context, path, content, message, root string) error {
	dest := store.UnarchivePath(path, root)
	if _, err := s.WriteDocument(ctx, dest, content, message, ""); err != nil {
		return err
	}
	return s.DeleteDocument(ctx, path, message)
}

// EnsureDirectory implements store.Store. Directories are implicit in the
// in-memory layout, so this is a no-op.
func (s *Store) EnsureDirectory(ctx context.Context, path string) error {
	return nil
}
