// File: internal/autofix/applier/txlog.go
package applier

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
)

// TransactionLog is the durable, capped record of transaction outcomes. It is
// loaded tolerantly (a missing or corrupt file yields an empty log rather
// than an error) and persisted atomically, so a crash mid-save never destroys
// the prior log.
type TransactionLog struct {
	mu      sync.Mutex
	path    string
	entries []schemas.TransactionLogEntry
	logger  *zap.Logger
}

// NewTransactionLog opens the log at path, loading whatever is already there.
func NewTransactionLog(path string, logger *zap.Logger) *TransactionLog {
	l := &TransactionLog{
		path:   path,
		logger: logger.Named("txlog"),
	}
	l.load()
	return l
}

func (l *TransactionLog) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("Cannot read transaction log; starting empty.", zap.String("path", l.path), zap.Error(err))
		}
		return
	}

	var entries []schemas.TransactionLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("Transaction log is corrupt; starting empty.", zap.String("path", l.path), zap.Error(err))
		return
	}
	l.entries = entries
	l.trimLocked()
}

// Append records a new entry, evicting the oldest entries beyond the cap.
func (l *TransactionLog) Append(entry schemas.TransactionLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	l.trimLocked()
}

// Finish moves a pending entry to its terminal status and attaches the fixes
// and commit hash. Status transitions are monotonic: a terminal entry is
// never rewritten, and an unknown ID is logged and ignored.
func (l *TransactionLog) Finish(id string, status schemas.TransactionStatus, fixes []schemas.AppliedPatch, commitHash string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID != id {
			continue
		}
		if l.entries[i].Status != schemas.TxPending {
			l.logger.Warn("Refusing to rewrite terminal transaction status.",
				zap.String("tx_id", id),
				zap.String("current", string(l.entries[i].Status)),
				zap.String("requested", string(status)))
			return
		}
		l.entries[i].Status = status
		l.entries[i].Fixes = fixes
		l.entries[i].CommitHash = commitHash
		return
	}
	l.logger.Warn("Transaction not found in log.", zap.String("tx_id", id))
}

// Entries returns a copy of the log, oldest first.
func (l *TransactionLog) Entries() []schemas.TransactionLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]schemas.TransactionLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Save persists the log atomically via a temp file and rename.
func (l *TransactionLog) Save() error {
	l.mu.Lock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling transaction log: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating transaction log directory: %w", err)
		}
	}
	if err := atomicWrite(l.path, data); err != nil {
		return fmt.Errorf("writing transaction log: %w", err)
	}
	return nil
}

// trimLocked enforces the entry cap. Callers hold l.mu.
func (l *TransactionLog) trimLocked() {
	if excess := len(l.entries) - safety.MaxHistoryEntries; excess > 0 {
		l.entries = append([]schemas.TransactionLogEntry(nil), l.entries[excess:]...)
	}
}
