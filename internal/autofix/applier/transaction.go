// File: internal/autofix/applier/transaction.go
package applier

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
)

// TransactionResult is the outcome of ApplyTransaction. From the caller's
// perspective a transaction is all-or-nothing: either every patch landed and
// Status is committed, or none remain applied and Status is rolled_back.
type TransactionResult struct {
	Success       bool                   `json:"success"`
	TransactionID string                 `json:"transaction_id"`
	Applied       []schemas.AppliedPatch `json:"applied,omitempty"`

	// Error is the failure that triggered the rollback.
	Error *ApplyError `json:"error,omitempty"`

	// RollbackErrors are collected separately so a failed rollback never
	// masks the original failure.
	RollbackErrors []*ApplyError `json:"rollback_errors,omitempty"`

	Status schemas.TransactionStatus `json:"status"`
}

// ApplyTransaction applies a group of patches atomically. Every patch is
// pre-validated before any is applied (atomicity of acceptance: structural,
// size, protection and path checks, but not disk staleness, which can only be
// judged at apply time once earlier patches have landed). On the first apply
// failure, everything already applied in this transaction is rolled back in
// reverse order.
func (a *Applier) ApplyTransaction(patches []*schemas.Patch, opts Options) TransactionResult {
	txID := uuid.New().String()
	result := TransactionResult{TransactionID: txID, Status: schemas.TxRolledBack}

	if len(patches) == 0 {
		result.Error = newError(schemas.CodeValidationFailed, "", "transaction contains no patches")
		return result
	}
	if len(patches) > safety.MaxPatchesPerTransaction {
		result.Error = newError(schemas.CodeSizeExceeded, "",
			fmt.Sprintf("transaction has %d patches; limit is %d", len(patches), safety.MaxPatchesPerTransaction))
		return result
	}

	// Acceptance gate: reject the whole transaction before touching disk.
	for i, patch := range patches {
		if patch == nil {
			result.Error = newError(schemas.CodeValidationFailed, "", fmt.Sprintf("patch %d is nil", i))
			return result
		}
		if containsTraversal(patch.FilePath) {
			result.Error = newError(schemas.CodePathTraversal, patch.FilePath, "path contains traversal segments")
			return result
		}
		rel := SanitizePath(patch.FilePath)
		resolved, err := ResolveWithinRoot(a.root, rel)
		if err != nil {
			result.Error = wrapError(schemas.CodePathTraversal, rel, "path escapes the project root", err)
			return result
		}
		if validation := a.validatePatch(patch, rel, resolved, false); !validation.Valid {
			result.Error = validation.firstError()
			return result
		}
	}

	entry := schemas.TransactionLogEntry{
		ID:        txID,
		Timestamp: time.Now().UTC(),
		Status:    schemas.TxPending,
	}
	a.txlog.Append(entry)

	a.logger.Info("Transaction started.", zap.String("tx_id", txID), zap.Int("patches", len(patches)))

	// Apply sequentially; first failure triggers a reverse rollback.
	for i, patch := range patches {
		applyResult := a.Apply(patch, opts)
		if !applyResult.Success {
			result.Error = applyResult.Error
			a.logger.Error("Transaction patch failed; rolling back.",
				zap.String("tx_id", txID),
				zap.Int("failed_index", i),
				zap.String("path", applyResult.FilePath),
				zap.Error(applyResult.Error))

			result.RollbackErrors = a.rollbackAll(result.Applied, opts)
			result.Applied = nil
			a.finishTransaction(txID, schemas.TxRolledBack, nil, "")
			return result
		}

		if !opts.DryRun {
			history := a.History()
			if len(history) > 0 {
				result.Applied = append(result.Applied, history[len(history)-1])
			}
		}
	}

	// Committed. Optionally record the change set as a local git commit; a
	// commit failure is logged but never un-commits the transaction.
	var commitHash string
	if a.committer != nil && !opts.DryRun && len(result.Applied) > 0 {
		hash, err := a.committer.CommitTransaction(txID, result.Applied)
		if err != nil {
			a.logger.Warn("Transaction committed but git commit failed.", zap.String("tx_id", txID), zap.Error(err))
		} else {
			commitHash = hash
		}
	}

	a.finishTransaction(txID, schemas.TxCommitted, result.Applied, commitHash)

	result.Success = true
	result.Status = schemas.TxCommitted
	a.logger.Info("Transaction committed.", zap.String("tx_id", txID), zap.Int("applied", len(result.Applied)))
	return result
}

// rollbackAll rolls back applied patches in reverse order, accumulating
// errors instead of stopping at the first one.
func (a *Applier) rollbackAll(applied []schemas.AppliedPatch, opts Options) []*ApplyError {
	var errs []*ApplyError
	for i := len(applied) - 1; i >= 0; i-- {
		if err := a.RollbackPatch(applied[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// finishTransaction records the terminal status and commit hash in the log
// and persists it. Log persistence is best effort.
func (a *Applier) finishTransaction(txID string, status schemas.TransactionStatus, fixes []schemas.AppliedPatch, commitHash string) {
	a.txlog.Finish(txID, status, fixes, commitHash)
	if err := a.txlog.Save(); err != nil {
		a.logger.Warn("Failed to persist transaction log.", zap.Error(err))
	}
}

// RollbackPatch restores a previously applied patch's pre-image. The
// checksum-verified backup is preferred; a backup whose checksum no longer
// matches is never restored. Without a usable backup the recorded
// originalContent is written back, and a patch that created a new file is
// rolled back by deleting it. The history record is removed regardless of
// which path succeeded.
func (a *Applier) RollbackPatch(applied schemas.AppliedPatch) *ApplyError {
	defer a.removeFromHistory(applied)

	resolved, err := ResolveWithinRoot(a.root, applied.FilePath)
	if err != nil {
		return wrapError(schemas.CodeRollbackFailed, applied.FilePath, "cannot resolve rollback target", err)
	}

	if !a.locks.Acquire(resolved, a.holder) {
		return newError(schemas.CodeRollbackFailed, applied.FilePath, "rollback target is locked by another operation")
	}
	defer a.locks.Release(resolved, a.holder)

	// Preferred: the verified backup.
	if applied.BackupPath != "" {
		content, readErr := os.ReadFile(applied.BackupPath)
		if readErr == nil && Checksum(content) == applied.BackupChecksum {
			if writeErr := atomicWrite(resolved, content); writeErr != nil {
				return wrapError(schemas.CodeRollbackFailed, applied.FilePath, "cannot restore from backup", writeErr)
			}
			a.logger.Info("Rolled back from backup.", zap.String("path", applied.FilePath))
			return nil
		}
		if readErr == nil {
			a.logger.Warn("Backup checksum mismatch; refusing to restore from it.",
				zap.String("path", applied.FilePath),
				zap.String("backup", applied.BackupPath))
		}
	}

	// Fallback: the recorded pre-image.
	if applied.OriginalContent != "" {
		if writeErr := atomicWrite(resolved, []byte(applied.OriginalContent)); writeErr != nil {
			return wrapError(schemas.CodeRollbackFailed, applied.FilePath, "cannot restore original content", writeErr)
		}
		a.logger.Info("Rolled back from recorded pre-image.", zap.String("path", applied.FilePath))
		return nil
	}

	// No pre-image at all: the patch created the file, so rollback deletes it.
	if removeErr := os.Remove(resolved); removeErr != nil && !os.IsNotExist(removeErr) {
		return wrapError(schemas.CodeRollbackFailed, applied.FilePath, "cannot delete created file", removeErr)
	}
	a.logger.Info("Rolled back by deleting created file.", zap.String("path", applied.FilePath))
	return nil
}
