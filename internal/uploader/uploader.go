// Package uploader contains the upload engine: it validates the local file,
// computes the canonical destination, picks the single-request or the
// chunked-session strategy by size, and wraps the transfer in a bounded
// retry loop with fixed delay.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dropship/internal/backend"
	"github.com/dmitrijs2005/dropship/internal/common"
	"github.com/dmitrijs2005/dropship/internal/logging"
	"github.com/dmitrijs2005/dropship/internal/pathx"
)

const (
	// SmallFileLimit is the largest file size sent in a single request.
	// Larger files go through a chunked upload session.
	SmallFileLimit = 150 * 1024 * 1024

	// DefaultMaxAttempts bounds the retry loop: one initial attempt plus
	// retries.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the fixed pause between attempts. No backoff
	// growth, no jitter.
	DefaultRetryDelay = 5 * time.Second
)

// sleep is a test seam for time.Sleep.
var sleep = time.Sleep

// Request describes one upload. Immutable once constructed.
type Request struct {
	LocalPath string
	Folder    string
	Filename  string // empty means: use the local file's base name
	Overwrite bool
}

// Uploader owns a backend client handle and performs sequential uploads
// against it. Not safe for concurrent use.
type Uploader struct {
	client      backend.Client
	logger      logging.Logger
	maxAttempts int
	retryDelay  time.Duration
	smallLimit  int64
	verified    bool
}

// New builds an Uploader around client. maxAttempts and retryDelay configure
// the retry policy; non-positive values fall back to the defaults.
func New(client backend.Client, logger logging.Logger, maxAttempts int, retryDelay time.Duration) *Uploader {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Uploader{
		client:      client,
		logger:      logger,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		smallLimit:  SmallFileLimit,
	}
}

// Upload transfers the file described by req and returns the
// backend-confirmed display path. Failures carry one of the common
// sentinels: ErrNotFound, ErrAuthFailed, ErrUploadFailed or ErrInternal.
func (u *Uploader) Upload(ctx context.Context, req Request) (string, error) {
	log := u.logger.With("upload_id", uuid.NewString())

	localPath := pathx.ResolveLocal(req.LocalPath)

	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: file not found: %s", common.ErrNotFound, localPath)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: path is not a file: %s", common.ErrNotFound, localPath)
	}

	name := req.Filename
	if name == "" {
		name = filepath.Base(localPath)
	}
	remotePath := pathx.NormalizeRemote(req.Folder + "/" + name)
	size := info.Size()

	log.Info(ctx, "uploading file",
		"local_path", localPath, "remote_path", remotePath, "size_bytes", size)

	if err := u.ensureVerified(ctx, log); err != nil {
		return "", err
	}

	commit := backend.CommitInfo{Path: remotePath, Overwrite: req.Overwrite}

	var lastErr error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		md, err := u.transfer(ctx, log, localPath, size, commit)
		if err == nil {
			log.Info(ctx, "upload complete", "remote_path", md.PathDisplay)
			return md.PathDisplay, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, backend.ErrAuth):
			return "", fmt.Errorf("%w: %w", common.ErrAuthFailed, err)

		case errors.Is(err, backend.ErrPathConflict) && !req.Overwrite:
			return "", fmt.Errorf("%w: already exists at %s: %w", common.ErrUploadFailed, remotePath, err)

		case errors.Is(err, backend.ErrInsufficientSpace):
			return "", fmt.Errorf("%w: %w", common.ErrUploadFailed, err)

		case ctx.Err() != nil:
			// Cancellation is never transient; do not mask it as retryable.
			return "", ctx.Err()
		}

		if attempt < u.maxAttempts {
			log.Warn(ctx, "attempt failed, retrying",
				"attempt", attempt, "max_attempts", u.maxAttempts,
				"delay", u.retryDelay, "error", err)
			sleep(u.retryDelay)
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", common.ErrUploadFailed, u.maxAttempts, lastErr)
}

// Close releases the backend client handle.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// ensureVerified performs the fail-fast identity check once per Uploader
// lifetime, before the first attempt.
func (u *Uploader) ensureVerified(ctx context.Context, log logging.Logger) error {
	if u.verified {
		return nil
	}

	acct, err := u.client.CurrentAccount(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrAuth) {
			return fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
		}
		return fmt.Errorf("%w: connect: %w", common.ErrInternal, err)
	}

	u.verified = true
	log.Info(ctx, "connected", "account", acct.DisplayName)
	return nil
}

// transfer performs one attempt, dispatching on file size. The size was
// measured once up front and is reused across retries.
func (u *Uploader) transfer(ctx context.Context, log logging.Logger, localPath string, size int64, commit backend.CommitInfo) (*backend.Metadata, error) {
	if size <= u.smallLimit {
		return u.uploadSmall(ctx, localPath, commit)
	}
	return u.uploadLarge(ctx, log, localPath, size, commit)
}

func (u *Uploader) uploadSmall(ctx context.Context, localPath string, commit backend.CommitInfo) (*backend.Metadata, error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", localPath, err)
	}
	return u.client.Upload(ctx, commit, content)
}

// uploadLarge streams the file through an upload session: the first chunk
// seeds the session, full chunks are appended while more than one chunk
// remains, and the final remainder commits the session. The cursor offset
// always equals the number of bytes the backend has acknowledged.
func (u *Uploader) uploadLarge(ctx context.Context, log logging.Logger, localPath string, size int64, commit backend.CommitInfo) (*backend.Metadata, error) {
	chunkSize := u.client.ChunkSize()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)

	n, err := readChunk(f, buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", localPath, err)
	}

	sessionID, err := u.client.StartSession(ctx, buf[:n])
	if err != nil {
		return nil, err
	}

	sent := int64(n)
	cursor := backend.Cursor{SessionID: sessionID, Offset: uint64(sent)}

	for sent < size {
		remaining := size - sent

		if remaining <= chunkSize {
			data := make([]byte, remaining)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, fmt.Errorf("read %s: %w", localPath, err)
			}
			return u.client.FinishSession(ctx, cursor, commit, data)
		}

		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read %s: %w", localPath, err)
		}
		if err := u.client.AppendSession(ctx, cursor, buf); err != nil {
			return nil, err
		}

		sent += chunkSize
		cursor.Offset = uint64(sent)
		log.Debug(ctx, "chunk uploaded",
			"sent_bytes", sent, "total_bytes", size,
			"pct", fmt.Sprintf("%.0f", float64(sent)/float64(size)*100))
	}

	// Unreachable with a well-formed size, checked defensively.
	return nil, errors.New("unexpected end of file during chunked upload")
}

// readChunk reads up to len(buf) bytes, tolerating a short read at the end
// of the file.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, nil
	}
	return n, err
}
