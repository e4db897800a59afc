package dropbox

// Wire models for the subset of the Dropbox HTTP API the client uses.
// Docs: https://www.dropbox.com/developers/documentation/http/documentation

type accountName struct {
	DisplayName string `json:"display_name"`
}

type accountResponse struct {
	AccountID string      `json:"account_id"`
	Name      accountName `json:"name"`
	Email     string      `json:"email"`
}

type fileMetadata struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	PathDisplay string `json:"path_display"`
	Size        uint64 `json:"size,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type sessionStartArg struct {
	Close bool `json:"close"`
}

type sessionStartResponse struct {
	SessionID string `json:"session_id"`
}

type sessionCursor struct {
	SessionID string `json:"session_id"`
	Offset    uint64 `json:"offset"`
}

type sessionAppendArg struct {
	Cursor sessionCursor `json:"cursor"`
	Close  bool          `json:"close"`
}

type commitInfo struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type sessionFinishArg struct {
	Cursor sessionCursor `json:"cursor"`
	Commit commitInfo    `json:"commit"`
}

type apiErrorResponse struct {
	ErrorSummary string `json:"error_summary"`
}
