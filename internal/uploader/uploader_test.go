package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dropship/internal/backend"
	"github.com/dmitrijs2005/dropship/internal/common"
	"github.com/dmitrijs2005/dropship/internal/logging"
)

type fakeBackend struct {
	chunk int64

	accountErr   error
	accountCalls int

	uploadErrs   []error // script: popped per call, nil means success
	uploadCalls  int
	uploadBytes  [][]byte
	commits      []backend.CommitInfo
	startBytes   [][]byte
	startErr     error
	appendCursor []backend.Cursor
	appendSizes  []int
	finishCursor []backend.Cursor
	finishSizes  []int
	finishCommit []backend.CommitInfo
}

func (f *fakeBackend) CurrentAccount(ctx context.Context) (*backend.Account, error) {
	f.accountCalls++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return &backend.Account{DisplayName: "Test User"}, nil
}

func (f *fakeBackend) popUploadErr() error {
	if len(f.uploadErrs) == 0 {
		return nil
	}
	err := f.uploadErrs[0]
	f.uploadErrs = f.uploadErrs[1:]
	return err
}

func (f *fakeBackend) Upload(ctx context.Context, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	f.uploadCalls++
	f.commits = append(f.commits, commit)
	f.uploadBytes = append(f.uploadBytes, bytes.Clone(content))
	if err := f.popUploadErr(); err != nil {
		return nil, err
	}
	return &backend.Metadata{PathDisplay: commit.Path, Size: uint64(len(content))}, nil
}

func (f *fakeBackend) StartSession(ctx context.Context, content []byte) (string, error) {
	f.startBytes = append(f.startBytes, bytes.Clone(content))
	if f.startErr != nil {
		return "", f.startErr
	}
	return "sess-1", nil
}

func (f *fakeBackend) AppendSession(ctx context.Context, cursor backend.Cursor, content []byte) error {
	f.appendCursor = append(f.appendCursor, cursor)
	f.appendSizes = append(f.appendSizes, len(content))
	return nil
}

func (f *fakeBackend) FinishSession(ctx context.Context, cursor backend.Cursor, commit backend.CommitInfo, content []byte) (*backend.Metadata, error) {
	f.finishCursor = append(f.finishCursor, cursor)
	f.finishSizes = append(f.finishSizes, len(content))
	f.finishCommit = append(f.finishCommit, commit)
	return &backend.Metadata{PathDisplay: commit.Path}, nil
}

func (f *fakeBackend) ChunkSize() int64 {
	if f.chunk == 0 {
		return 4
	}
	return f.chunk
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) totalCalls() int {
	return f.accountCalls + f.uploadCalls +
		len(f.startBytes) + len(f.appendCursor) + len(f.finishCursor)
}

func newTestUploader(f *fakeBackend) *Uploader {
	log := logging.NewTextLogger(io.Discard, slog.LevelDebug)
	return New(f, log, DefaultMaxAttempts, DefaultRetryDelay)
}

// trackSleeps replaces the sleep seam for the duration of the test and
// returns the recorded delays.
func trackSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	t.Cleanup(func() { sleep = orig })
	return &delays
}

func writeTemp(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestUpload_MissingFile_NoBackendCalls(t *testing.T) {
	f := &fakeBackend{}
	u := newTestUploader(f)

	_, err := u.Upload(context.Background(), Request{
		LocalPath: filepath.Join(t.TempDir(), "nope.md"),
		Folder:    "/",
		Overwrite: true,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 0, f.totalCalls())
}

func TestUpload_DirectoryIsNotFound(t *testing.T) {
	f := &fakeBackend{}
	u := newTestUploader(f)

	_, err := u.Upload(context.Background(), Request{
		LocalPath: t.TempDir(),
		Folder:    "/",
		Overwrite: true,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 0, f.totalCalls())
}

func TestUpload_SmallFile_SingleRequest(t *testing.T) {
	f := &fakeBackend{}
	u := newTestUploader(f)
	p := writeTemp(t, "report.md", 64)

	got, err := u.Upload(context.Background(), Request{
		LocalPath: p,
		Folder:    "Reports//2024",
		Overwrite: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "/Reports/2024/report.md", got)
	require.Equal(t, 1, f.uploadCalls)
	assert.Len(t, f.uploadBytes[0], 64)
	assert.True(t, f.commits[0].Overwrite)
	assert.Empty(t, f.startBytes, "small file must not open a session")
}

func TestUpload_CustomFilename(t *testing.T) {
	f := &fakeBackend{}
	u := newTestUploader(f)
	p := writeTemp(t, "local.md", 10)

	got, err := u.Upload(context.Background(), Request{
		LocalPath: p,
		Folder:    "/Reports",
		Filename:  "custom.md",
		Overwrite: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "/Reports/custom.md", got)
}

func TestUpload_SizeBoundary(t *testing.T) {
	// At the limit: single request. One byte over: session.
	tests := []struct {
		name        string
		size        int
		wantSession bool
	}{
		{"exactly at limit", 100, false},
		{"one byte over limit", 101, true},
		{"empty file", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeBackend{chunk: 40}
			u := newTestUploader(f)
			u.smallLimit = 100
			p := writeTemp(t, "data.bin", tc.size)

			_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})
			require.NoError(t, err)

			if tc.wantSession {
				assert.Equal(t, 0, f.uploadCalls)
				assert.Len(t, f.startBytes, 1)
				assert.Len(t, f.finishCursor, 1)
			} else {
				assert.Equal(t, 1, f.uploadCalls)
				assert.Empty(t, f.startBytes)
			}
		})
	}
}

func TestUpload_Chunking_AllBytesAccountedFor(t *testing.T) {
	tests := []struct {
		name        string
		size        int64
		chunk       int64
		wantAppends int
		wantFinish  int64
	}{
		{"remainder in finish", 10, 4, 1, 2},
		{"exact multiple of chunk", 12, 4, 1, 4},
		{"two chunks exactly", 8, 4, 0, 4},
		{"large remainder", 9, 4, 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeBackend{chunk: tc.chunk}
			u := newTestUploader(f)
			u.smallLimit = 1 // force the session path
			p := writeTemp(t, "big.bin", int(tc.size))

			got, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/backups", Overwrite: true})
			require.NoError(t, err)
			assert.Equal(t, "/backups/big.bin", got)

			require.Len(t, f.startBytes, 1)
			assert.Len(t, f.appendCursor, tc.wantAppends)
			require.Len(t, f.finishCursor, 1, "exactly one finish call")

			total := int64(len(f.startBytes[0]))
			for _, n := range f.appendSizes {
				total += int64(n)
			}
			total += int64(f.finishSizes[0])
			assert.Equal(t, tc.size, total, "start+appends+finish must cover the file")
			assert.Equal(t, int64(f.finishSizes[0]), tc.wantFinish)

			// The cursor offset equals the bytes sent before each call.
			sent := int64(len(f.startBytes[0]))
			for i, cur := range f.appendCursor {
				assert.Equal(t, uint64(sent), cur.Offset)
				sent += int64(f.appendSizes[i])
			}
			assert.Equal(t, uint64(sent), f.finishCursor[0].Offset)
		})
	}
}

func TestUpload_RetriesThenSucceeds(t *testing.T) {
	delays := trackSleeps(t)

	f := &fakeBackend{uploadErrs: []error{
		errors.New("connection reset"),
		errors.New("timeout"),
		nil,
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	got, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.NoError(t, err)
	assert.Equal(t, "/r.md", got)
	assert.Equal(t, 3, f.uploadCalls)
	require.Len(t, *delays, 2, "exactly two delays for two retries")
	assert.Equal(t, DefaultRetryDelay, (*delays)[0])
}

func TestUpload_RetriesExhausted(t *testing.T) {
	delays := trackSleeps(t)

	f := &fakeBackend{uploadErrs: []error{
		errors.New("boom"), errors.New("boom"), errors.New("boom"),
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUploadFailed)
	assert.Equal(t, 3, f.uploadCalls, "at most 3 attempts")
	assert.Len(t, *delays, 2, "no delay after the final attempt")
}

func TestUpload_AuthErrorFailsImmediately(t *testing.T) {
	delays := trackSleeps(t)

	f := &fakeBackend{uploadErrs: []error{
		fmt.Errorf("token rejected: %w", backend.ErrAuth),
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuthFailed)
	assert.Equal(t, 1, f.uploadCalls)
	assert.Empty(t, *delays)
}

func TestUpload_VerifyAuthFailure(t *testing.T) {
	f := &fakeBackend{accountErr: fmt.Errorf("bad creds: %w", backend.ErrAuth)}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuthFailed)
	assert.Equal(t, 0, f.uploadCalls, "no transfer after failed identity check")
}

func TestUpload_VerifyConnectionFailure(t *testing.T) {
	f := &fakeBackend{accountErr: errors.New("dial tcp: connection refused")}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestUpload_VerifiedOncePerLifetime(t *testing.T) {
	f := &fakeBackend{}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	ctx := context.Background()
	req := Request{LocalPath: p, Folder: "/", Overwrite: true}

	_, err := u.Upload(ctx, req)
	require.NoError(t, err)
	_, err = u.Upload(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, f.accountCalls)
	assert.Equal(t, 2, f.uploadCalls)
}

func TestUpload_ConflictWithoutOverwriteFailsImmediately(t *testing.T) {
	delays := trackSleeps(t)

	f := &fakeBackend{uploadErrs: []error{
		fmt.Errorf("path/conflict: %w", backend.ErrPathConflict),
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: false})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUploadFailed)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, 1, f.uploadCalls)
	assert.Empty(t, *delays)
}

func TestUpload_ConflictWithOverwriteIsRetryable(t *testing.T) {
	delays := trackSleeps(t)

	f := &fakeBackend{uploadErrs: []error{
		fmt.Errorf("path/conflict: %w", backend.ErrPathConflict),
		nil,
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	got, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.NoError(t, err)
	assert.Equal(t, "/r.md", got)
	assert.Equal(t, 2, f.uploadCalls)
	assert.Len(t, *delays, 1)
}

func TestUpload_InsufficientSpaceFailsImmediately(t *testing.T) {
	f := &fakeBackend{uploadErrs: []error{
		fmt.Errorf("quota: %w", backend.ErrInsufficientSpace),
	}}
	u := newTestUploader(f)
	p := writeTemp(t, "r.md", 8)

	_, err := u.Upload(context.Background(), Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUploadFailed)
	assert.Equal(t, 1, f.uploadCalls)
}

func TestUpload_CancelledContextIsNotRetried(t *testing.T) {
	delays := trackSleeps(t)

	ctx, cancel := context.WithCancel(context.Background())

	f := &fakeBackend{uploadErrs: []error{errors.New("request aborted")}}
	u := newTestUploader(f)
	// Cancel before the attempt so the classification sees a dead context.
	cancel()
	// Identity check happens before the retry loop; mark it done.
	u.verified = true

	p := writeTemp(t, "r.md", 8)
	_, err := u.Upload(ctx, Request{LocalPath: p, Folder: "/", Overwrite: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *delays)
}
