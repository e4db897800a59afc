package backend

import "errors"

// Classification sentinels. Backend implementations wrap their native errors
// around these so the engine can classify failures with errors.Is without
// knowing any backend's native error types.
var (
	// ErrAuth reports a credential or token rejection.
	ErrAuth = errors.New("authentication rejected")

	// ErrPathConflict reports that the destination path already exists and
	// the write mode forbids replacing it.
	ErrPathConflict = errors.New("path conflict")

	// ErrInsufficientSpace reports that the account is out of storage space.
	ErrInsufficientSpace = errors.New("insufficient storage space")
)
