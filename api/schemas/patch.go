package schemas

import (
	"strings"
	"time"
)

// -- Patch Schemas --

// Hunk describes one contiguous region of change within a patch, using the
// familiar unified-diff coordinates.
type Hunk struct {
	OldStart int      `json:"old_start"`
	OldLines int      `json:"old_lines"`
	NewStart int      `json:"new_start"`
	NewLines int      `json:"new_lines"`
	Lines    []string `json:"lines"`
}

// Patch is a concrete, already-generated replacement of one file's content.
// It is produced once by a fix module and treated as immutable input by the
// applier.
type Patch struct {
	FilePath string `json:"file_path"`
	Hunks    []Hunk `json:"hunks"`

	// OriginalContent is the expected pre-image of the target file. The
	// applier compares it byte-for-byte against the on-disk content to detect
	// concurrent drift before writing. Empty means "file is expected to be new".
	OriginalContent string `json:"original_content"`

	// NewContent is the complete post-image that will be written to disk.
	NewContent string `json:"new_content"`

	IssueID  string `json:"issue_id"`
	ModuleID string `json:"module_id"`
}

// LinesChanged reports the total number of added plus removed lines across
// the patch's hunks. Falls back to a whole-content line delta when the module
// supplied no hunks.
func (p *Patch) LinesChanged() int {
	total := 0
	for _, h := range p.Hunks {
		total += h.OldLines + h.NewLines
	}
	if total == 0 && p.OriginalContent != p.NewContent {
		// No hunk metadata; treat the whole rewrite as the changed scope.
		oldLines := strings.Count(p.OriginalContent, "\n") + 1
		newLines := strings.Count(p.NewContent, "\n") + 1
		if newLines > oldLines {
			return newLines
		}
		return oldLines
	}
	return total
}

// AppliedPatch is the durable record of a patch that was written to disk.
// Until the record is pruned past the retention window, either BackupPath or
// the embedded OriginalContent is sufficient to reconstruct the pre-image.
type AppliedPatch struct {
	Patch

	AppliedAt time.Time `json:"applied_at"`

	// BackupPath points at the checksum-verified copy of the pre-image, when
	// a backup was requested and the target existed.
	BackupPath string `json:"backup_path,omitempty"`

	// BackupChecksum is the sha256 of the backup at the time it was taken.
	// Restores are refused if the backup no longer hashes to this value.
	BackupChecksum string `json:"backup_checksum,omitempty"`
}

// TransactionStatus tracks a multi-patch transaction's lifecycle. Transitions
// are monotonic: pending moves to committed or rolled_back, never backward.
type TransactionStatus string

const (
	TxPending    TransactionStatus = "pending"
	TxCommitted  TransactionStatus = "committed"
	TxRolledBack TransactionStatus = "rolled_back"
)

// TransactionLogEntry records one multi-patch transaction.
type TransactionLogEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Fixes     []AppliedPatch    `json:"fixes"`
	Status    TransactionStatus `json:"status"`

	// CommitHash is set when the committed transaction was additionally
	// recorded as a local git commit.
	CommitHash string `json:"commit_hash,omitempty"`
}
