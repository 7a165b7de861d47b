// Package store defines the remote document store contract used by the
// synchronization engine.
//
// The store exposes whole-document CRUD keyed by path. Every read and write
// carries an opaque version token (the remote content hash) used for
// optimistic-concurrency conflict detection: a write with a stale expected
// version fails with ErrConflict.
package store

import "context"

// DocRef identifies one document in a listing.
type DocRef struct {
	// Path is the storage path, the stable logical identity of the document.
	Path string

	// Version is the content hash at listing time.
	Version string
}

// Metadata carries the version token of a document without its content.
type Metadata struct {
	Version string
}

// Store is the remote document store contract.
//
// All operations take a context for cancellation. Implementations must
// return errors from this package's taxonomy (wrapped is fine) so callers
// can dispatch with errors.Is.
type Store interface {
	// ListDocuments lists the documents of one partition under root.
	// archived selects the archive partition. A missing partition
	// directory returns ErrNotFound.
	ListDocuments(ctx context.Context, root string, archived bool) ([]DocRef, error)

	// ReadDocument returns the raw content of the document at path.
	ReadDocument(ctx context.Context, path string) (string, error)

	// ReadMetadata returns the current version token of the document at
	// path without fetching its content.
	ReadMetadata(ctx context.Context, path string) (Metadata, error)

	// WriteDocument creates or updates the document at path. When
	// expectedVersion is non-empty and no longer matches the stored
	// version, the write fails with ErrConflict. The returned metadata
	// carries the new version token.
	WriteDocument(ctx context.Context, path, content, message, expectedVersion string) (Metadata, error)

	// DeleteDocument removes the document at path.
	DeleteDocument(ctx context.Context, path, message string) error

	// MoveToArchive relocates the document at path into the archive
	// subdirectory under root, writing content at the new location and
	// deleting the original.
	MoveToArchive(ctx context.Context, path, content, message, root string) error

	// MoveFromArchive relocates the document at path out of the archive
	// subdirectory under root.
	MoveFromArchive(ctx context.Context, path, content, message, root string) error

	// EnsureDirectory makes sure the directory at path exists, creating
	// it (and a placeholder if the backend needs one) when absent.
	EnsureDirectory(ctx context.Context, path string) error
}

// ArchiveDirName is the fixed subdirectory that holds the archived
// partition under the configured root.
const ArchiveDirName = "archive"

// ArchivePath maps an open-partition path to its archive location under
// root. The filename is preserved.
func ArchivePath(path, root string) string {
	return root + "/" + ArchiveDirName + "/" + baseName(path)
}

// UnarchivePath maps an archived path back to the open partition under root.
func UnarchivePath(path, root string) string {
	return root + "/" + baseName(path)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
