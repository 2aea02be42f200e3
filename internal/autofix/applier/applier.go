// File: internal/autofix/applier/applier.go
// Description: Validates and atomically applies patches to disk, with
// checksum-verified backups, per-path locking, and rollback support.
package applier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// Options tunes a single Apply call.
type Options struct {
	// Backup copies the pre-image to the backup directory before writing.
	Backup bool
	// DryRun stops after validation and reports success without writing.
	DryRun bool
}

// Applier validates and applies patches to disk. Each instance is scoped to
// one resolved project root and owns its lock manager; two appliers on the
// same root would arbitrate locks separately, so construct one per root.
type Applier struct {
	root      string
	backupDir string
	logger    *zap.Logger
	locks     *LockManager
	txlog     *TransactionLog
	committer *Committer

	// holder tags every lock this instance takes.
	holder string

	mu      sync.Mutex // guards history
	history []schemas.AppliedPatch
}

// New builds an applier rooted at cfg.ProjectRoot. The transaction log is
// loaded eagerly; a missing or corrupt log file starts empty.
func New(cfg config.AutofixConfig, logger *zap.Logger) (*Applier, error) {
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root %q: %w", cfg.ProjectRoot, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root %q: %w", cfg.ProjectRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %q is not a directory", cfg.ProjectRoot)
	}

	backupDir := cfg.BackupDir
	if backupDir != "" && !filepath.IsAbs(backupDir) {
		backupDir = filepath.Join(root, backupDir)
	}

	log := logger.Named("patch-applier")

	a := &Applier{
		root:      root,
		backupDir: backupDir,
		logger:    log,
		locks:     NewLockManager(logger),
		txlog:     NewTransactionLog(cfg.TransactionLog, log),
		holder:    uuid.New().String(),
	}
	if cfg.Git.Enabled {
		committer, err := NewCommitter(root, cfg.Git, log)
		if err != nil {
			return nil, err
		}
		a.committer = committer
	}
	return a, nil
}

// Root returns the resolved absolute project root.
func (a *Applier) Root() string { return a.root }

// Locks exposes the per-path lock manager so cooperating components can
// arbitrate against the same instance.
func (a *Applier) Locks() *LockManager { return a.locks }

// TransactionLog exposes the applier's transaction log.
func (a *Applier) TransactionLog() *TransactionLog { return a.txlog }

// Apply validates and writes one patch. Every gate short-circuits with a
// typed failure; nothing is thrown past this boundary, and on failure the
// target file is untouched.
func (a *Applier) Apply(patch *schemas.Patch, opts Options) ApplyResult {
	if patch == nil {
		return failure("", newError(schemas.CodeValidationFailed, "", "nil patch"))
	}

	// 1. Sanitize and resolve the path, rejecting traversal and symlink escapes.
	if containsTraversal(patch.FilePath) {
		return failure(patch.FilePath, newError(schemas.CodePathTraversal, patch.FilePath, "path contains traversal segments"))
	}
	rel := SanitizePath(patch.FilePath)
	if rel == "" {
		return failure(patch.FilePath, newError(schemas.CodeValidationFailed, patch.FilePath, "path is empty after sanitization"))
	}
	resolved, err := ResolveWithinRoot(a.root, rel)
	if err != nil {
		return failure(rel, wrapError(schemas.CodePathTraversal, rel, "path escapes the project root", err))
	}

	// 2. Protected paths are never writable, regardless of policy.
	if isProtectedPath(rel) {
		return failure(rel, newError(schemas.CodeProtectedFile, rel, "path is protected"))
	}

	// 3. Exclusive per-path lock; a held lock means "try later", not "wait".
	if !a.locks.Acquire(resolved, a.holder) {
		return failure(rel, newError(schemas.CodeLocked, rel, "file is locked by another operation"))
	}
	// 11. The lock is released on every exit path.
	defer a.locks.Release(resolved, a.holder)

	// 4. Full validation, including staleness against the on-disk pre-image.
	// 5. The max-file-size ceiling is enforced inside the same pipeline.
	validation := a.validatePatch(patch, rel, resolved, true)
	for _, warning := range validation.Warnings {
		a.logger.Warn("Patch validation warning.", zap.String("path", rel), zap.String("warning", warning))
	}
	if !validation.Valid {
		return failure(rel, validation.firstError())
	}

	// 6. Checksum-verified backup of the existing target.
	var backupPath, backupChecksum string
	if opts.Backup {
		if _, statErr := os.Stat(resolved); statErr == nil {
			backupPath, backupChecksum, err = a.backupFile(resolved, rel)
			if err != nil {
				if applyErr, ok := err.(*ApplyError); ok {
					return failure(rel, applyErr)
				}
				return failure(rel, wrapError(schemas.CodeBackupFailed, rel, "backup failed", err))
			}
		}
	}

	// 7. Dry-run mode stops before any write.
	if opts.DryRun {
		a.logger.Info("Dry run: patch validated, not written.", zap.String("path", rel))
		return ApplyResult{Success: true, FilePath: rel, BackupPath: backupPath}
	}

	// 8. Ensure the parent directory exists and the target is writable.
	if mkErr := os.MkdirAll(filepath.Dir(resolved), 0o755); mkErr != nil {
		return failure(rel, wrapError(schemas.CodeWriteFailed, rel, "cannot create parent directory", mkErr))
	}
	if _, statErr := os.Stat(resolved); statErr == nil {
		probe, openErr := os.OpenFile(resolved, os.O_WRONLY, 0)
		if openErr != nil {
			return failure(rel, wrapError(schemas.CodePermissionDenied, rel, "target is not writable", openErr))
		}
		probe.Close()
	}

	// 9. Atomic write: temp file, read-back verification, then rename.
	if writeErr := atomicWrite(resolved, []byte(patch.NewContent)); writeErr != nil {
		return failure(rel, wrapError(schemas.CodeWriteFailed, rel, "atomic write failed", writeErr))
	}

	// 10. Record the applied patch; the history is capped, oldest first out.
	applied := schemas.AppliedPatch{
		Patch:          *patch,
		AppliedAt:      time.Now().UTC(),
		BackupPath:     backupPath,
		BackupChecksum: backupChecksum,
	}
	applied.FilePath = rel
	a.recordApplied(applied)

	a.logger.Info("Patch applied.",
		zap.String("path", rel),
		zap.String("issue_id", patch.IssueID),
		zap.String("module_id", patch.ModuleID),
		zap.String("backup", backupPath))

	return ApplyResult{Success: true, FilePath: rel, BackupPath: backupPath}
}

// -- Backup handling --

// backupTimestamp renders an ISO timestamp with path-hostile characters
// replaced, for use in backup file names.
func backupTimestamp(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return string(bytes.ReplaceAll([]byte(ts), []byte(":"), []byte("-")))
}

// backupFile copies the target's current content to a timestamped .bak file
// and verifies the copy by re-reading and re-hashing it. A verification
// mismatch deletes the bad backup and fails the apply.
func (a *Applier) backupFile(resolved, rel string) (string, string, error) {
	current, err := os.ReadFile(resolved)
	if err != nil {
		return "", "", wrapError(schemas.CodeBackupFailed, rel, "cannot read current content for backup", err)
	}
	checksum := Checksum(current)

	if err := os.MkdirAll(a.backupDir, 0o755); err != nil {
		return "", "", wrapError(schemas.CodeBackupFailed, rel, "cannot create backup directory", err)
	}

	base := fmt.Sprintf("%s.%s", filepath.Base(resolved), backupTimestamp(time.Now()))
	backupPath, err := a.createBackup(base, current)
	if err != nil {
		return "", "", wrapError(schemas.CodeBackupFailed, rel, "cannot write backup", err)
	}

	// Verify the backup round-trips before trusting it as a rollback source.
	reread, err := os.ReadFile(backupPath)
	if err != nil || Checksum(reread) != checksum {
		os.Remove(backupPath)
		if err == nil {
			err = fmt.Errorf("backup checksum mismatch")
		}
		return "", "", wrapError(schemas.CodeBackupFailed, rel, "backup verification failed", err)
	}

	a.pruneBackups()
	return backupPath, checksum, nil
}

// createBackup writes content to an exclusively created .bak file under the
// backup directory. A name collision (two backups of one file within the same
// timestamp tick) gets a numeric suffix instead of overwriting the earlier
// backup, which would orphan its recorded checksum.
func (a *Applier) createBackup(base string, content []byte) (string, error) {
	for i := 0; ; i++ {
		name := base + ".bak"
		if i > 0 {
			name = fmt.Sprintf("%s.%d.bak", base, i)
		}
		path := filepath.Join(a.backupDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", err
		}
		return path, nil
	}
}

// pruneBackups keeps the backup directory below the retention ceiling,
// discarding the oldest files first. Best effort; failures are logged only.
func (a *Applier) pruneBackups() {
	entries, err := os.ReadDir(a.backupDir)
	if err != nil {
		return
	}

	type backup struct {
		path string
		mod  time.Time
	}
	var backups []backup
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".bak" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: filepath.Join(a.backupDir, entry.Name()), mod: info.ModTime()})
	}
	if len(backups) <= safety.MaxBackupsRetained {
		return
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].mod.Before(backups[j].mod) })
	for _, old := range backups[:len(backups)-safety.MaxBackupsRetained] {
		if err := os.Remove(old.path); err != nil {
			a.logger.Warn("Failed to prune old backup.", zap.String("path", old.path), zap.Error(err))
		}
	}
}

// -- Atomic write --

// atomicWrite writes content to a temporary file in the target's directory,
// verifies it byte-for-byte, then renames it over the target. The rename is
// atomic on the same volume, so readers never observe a partial write.
func atomicWrite(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".remedy-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("cannot write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("cannot close temp file: %w", err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		cleanup()
		return fmt.Errorf("cannot verify temp file: %w", err)
	}
	if !bytes.Equal(written, content) {
		cleanup()
		return fmt.Errorf("temp file content does not match intended content")
	}

	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return fmt.Errorf("cannot rename temp file over target: %w", err)
	}
	return nil
}

// Checksum returns the hex sha256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// -- History --

// recordApplied appends to the capped history.
func (a *Applier) recordApplied(applied schemas.AppliedPatch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, applied)
	if len(a.history) > safety.MaxHistoryEntries {
		a.history = a.history[len(a.history)-safety.MaxHistoryEntries:]
	}
}

// removeFromHistory drops the record for a rolled-back patch, matching on
// path and apply time.
func (a *Applier) removeFromHistory(applied schemas.AppliedPatch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, entry := range a.history {
		if entry.FilePath == applied.FilePath && entry.AppliedAt.Equal(applied.AppliedAt) {
			a.history = append(a.history[:i], a.history[i+1:]...)
			return
		}
	}
}

// History returns a copy of the applied-patch history, newest last.
func (a *Applier) History() []schemas.AppliedPatch {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]schemas.AppliedPatch, len(a.history))
	copy(out, a.history)
	return out
}
