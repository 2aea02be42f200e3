// File: internal/autofix/applier/errors.go
package applier

import (
	"fmt"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// ApplyError is the structured failure every applier gate returns. Errors
// never escape the applier boundary as panics or untyped values; callers
// always get a code they can route on.
type ApplyError struct {
	Code    schemas.ErrorCode
	Path    string
	Message string
	Err     error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Code, e.Message, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ApplyError) Unwrap() error { return e.Err }

// newError builds an ApplyError without an underlying cause.
func newError(code schemas.ErrorCode, path, message string) *ApplyError {
	return &ApplyError{Code: code, Path: path, Message: message}
}

// wrapError builds an ApplyError around an underlying cause.
func wrapError(code schemas.ErrorCode, path, message string, err error) *ApplyError {
	return &ApplyError{Code: code, Path: path, Message: message, Err: err}
}

// ApplyResult is the outcome of a single Apply call.
type ApplyResult struct {
	Success    bool   `json:"success"`
	FilePath   string `json:"file_path"`
	BackupPath string `json:"backup_path,omitempty"`

	// Error is set when Success is false. It is carried as a value rather
	// than returned so the applier's contract stays "never throws".
	Error *ApplyError `json:"error,omitempty"`
}

// failure is a small helper for the gate sequence in Apply.
func failure(path string, err *ApplyError) ApplyResult {
	return ApplyResult{Success: false, FilePath: path, Error: err}
}
