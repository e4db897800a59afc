package dropbox

import "fmt"

// APIError is a non-success response from the Dropbox API. Err carries the
// matching classification sentinel from the backend package when the failure
// is recognizable, and is nil otherwise.
type APIError struct {
	Endpoint   string
	StatusCode int
	Summary    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("dropbox %s: status %d: %s", e.Endpoint, e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("dropbox %s: status %d", e.Endpoint, e.StatusCode)
}

// Unwrap returns the classification sentinel, enabling errors.Is matching.
func (e *APIError) Unwrap() error {
	return e.Err
}
