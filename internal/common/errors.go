// Package common defines the shared error taxonomy of dropship. Every failure
// that crosses the uploader boundary is reclassified into one of these
// sentinels; callers match them with errors.Is to choose exit codes.
package common

import "errors"

var (
	// ErrNotFound reports that the local file does not exist or is not a
	// regular file. It is a precondition failure and is never retried.
	ErrNotFound = errors.New("not found")

	// ErrAuthFailed reports a credential rejection by the backend.
	// Never retried.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUploadFailed reports an exhausted retry budget or a non-retryable
	// backend rejection (conflict without overwrite, insufficient space).
	ErrUploadFailed = errors.New("upload failed")

	// ErrInternal covers connection setup problems and unexpected backend
	// errors that do not fit the taxonomy above.
	ErrInternal = errors.New("internal error")
)
