// Package pathx converts user-supplied paths into canonical forms: remote
// destination strings into the leading-slash/no-double-slash form the backend
// expects, and local paths (possibly in Git Bash or Cygwin notation) into
// absolute paths of the host convention.
package pathx

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

const windows = "windows"

// NormalizeRemote returns the canonical form of a remote destination path:
// exactly one leading '/', forward slashes only, no repeated slashes.
// It is a pure function and is idempotent.
func NormalizeRemote(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	return p
}

// ResolveLocal resolves a local file path to an absolute path, first
// rewriting two foreign absolute-path conventions to the drive-letter form:
//
//	/c/Users/...          -> C:/Users/...   (Git Bash)
//	/cygdrive/c/Users/... -> C:/Users/...   (Cygwin, MSYS2)
//
// Resolution never fails for a syntactically valid string; whether the
// target exists is checked later, by the caller.
func ResolveLocal(p string) string {
	p = rewriteDrivePath(p)

	// A drive-letter path cannot be resolved against the working directory
	// of a non-Windows host; keep it as-is, cleaned.
	if runtime.GOOS != windows && hasDrivePrefix(p) {
		return path.Clean(strings.ReplaceAll(p, "\\", "/"))
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// rewriteDrivePath converts Git Bash and Cygwin drive notation into
// "<LETTER>:/..." form. Other inputs pass through unchanged.
func rewriteDrivePath(p string) string {
	if len(p) >= 3 && p[0] == '/' && p[2] == '/' && isLetter(p[1]) {
		return strings.ToUpper(string(p[1])) + ":" + p[2:]
	}

	const cygdrive = "/cygdrive/"
	if strings.HasPrefix(p, cygdrive) && len(p) >= len(cygdrive)+2 && isLetter(p[10]) && p[11] == '/' {
		return strings.ToUpper(string(p[10])) + ":" + p[11:]
	}

	return p
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' && isLetter(p[0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
