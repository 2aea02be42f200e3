package schemas

// -- Error Codes --

// ErrorCode classifies every failure the engine can report. Applier-level
// codes come back inside an ApplyResult; orchestration-level codes surface as
// FixError messages. There is no silent failure mode: anything skipped or
// aborted carries one of these.
type ErrorCode string

const (
	// Applier-level codes.
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeContentMismatch  ErrorCode = "CONTENT_MISMATCH" // Staleness: on-disk content drifted from the patch pre-image.
	CodeProtectedFile    ErrorCode = "PROTECTED_FILE"
	CodePathTraversal    ErrorCode = "PATH_TRAVERSAL"
	CodeSizeExceeded     ErrorCode = "SIZE_EXCEEDED"
	CodeWriteFailed      ErrorCode = "WRITE_FAILED"
	CodeBackupFailed     ErrorCode = "BACKUP_FAILED"
	CodeRollbackFailed   ErrorCode = "ROLLBACK_FAILED"

	// Orchestration-level codes.
	CodeLocked      ErrorCode = "LOCKED"
	CodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeAborted     ErrorCode = "ABORTED"
)
