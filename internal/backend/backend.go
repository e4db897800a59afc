// Package backend defines the storage-backend client interface the upload
// engine consumes, together with the shared types and the error sentinels
// used to classify backend failures. Concrete implementations live in the
// subpackages (dropbox, s3).
package backend

import "context"

// Account identifies the authenticated principal, used for the fail-fast
// identity check at connection time.
type Account struct {
	DisplayName string
}

// Metadata is the backend-confirmed result of a finished upload. PathDisplay
// is authoritative and may differ from the locally computed canonical path.
type Metadata struct {
	Name        string
	PathDisplay string
	Size        uint64
}

// CommitInfo carries the destination and the write mode of an upload.
type CommitInfo struct {
	Path      string
	Overwrite bool
}

// Cursor identifies an open upload session and the number of bytes the
// backend has received so far. The offset advances monotonically after every
// successful append.
type Cursor struct {
	SessionID string
	Offset    uint64
}

// Client is the set of operations the upload engine needs from a storage
// backend. Implementations are not safe for concurrent use; the engine calls
// them sequentially.
type Client interface {
	// CurrentAccount verifies credentials and returns the account identity.
	// Called once at connection time to fail fast on bad credentials.
	CurrentAccount(ctx context.Context) (*Account, error)

	// Upload transfers content in a single request (small-file path).
	Upload(ctx context.Context, commit CommitInfo, content []byte) (*Metadata, error)

	// StartSession opens a chunked upload session seeded with content and
	// returns the opaque session id.
	StartSession(ctx context.Context, content []byte) (string, error)

	// AppendSession adds content to an open session at cursor.Offset.
	AppendSession(ctx context.Context, cursor Cursor, content []byte) error

	// FinishSession sends the final content, commits the session to its
	// destination and returns the confirmed metadata.
	FinishSession(ctx context.Context, cursor Cursor, commit CommitInfo, content []byte) (*Metadata, error)

	// ChunkSize returns the chunk size the backend expects for session
	// uploads, in bytes.
	ChunkSize() int64

	// Close releases the underlying connection resources.
	Close() error
}
