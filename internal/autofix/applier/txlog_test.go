// File: internal/autofix/applier/txlog_test.go
package applier

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
)

func TestTransactionLog_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state", "txlog.json")

	l := NewTransactionLog(path, zap.NewNop())
	l.Append(schemas.TransactionLogEntry{ID: "tx-1", Timestamp: time.Now().UTC(), Status: schemas.TxPending})
	l.Finish("tx-1", schemas.TxCommitted, nil, "abc123")
	require.NoError(t, l.Save())

	reloaded := NewTransactionLog(path, zap.NewNop())
	entries := reloaded.Entries()
	require.Len(t, entries, 1)
	if diff := cmp.Diff(l.Entries(), entries); diff != "" {
		t.Errorf("reloaded entries mismatch (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, schemas.TxCommitted, entries[0].Status)
	assert.Equal(t, "abc123", entries[0].CommitHash)
}

func TestTransactionLog_TolerantLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file starts empty", func(t *testing.T) {
		t.Parallel()
		l := NewTransactionLog(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())
		assert.Empty(t, l.Entries())
	})

	t.Run("corrupt file starts empty", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		l := NewTransactionLog(path, zap.NewNop())
		assert.Empty(t, l.Entries())
	})
}

func TestTransactionLog_MonotonicStatus(t *testing.T) {
	t.Parallel()
	l := NewTransactionLog(filepath.Join(t.TempDir(), "txlog.json"), zap.NewNop())

	l.Append(schemas.TransactionLogEntry{ID: "tx-1", Status: schemas.TxPending})
	l.Finish("tx-1", schemas.TxRolledBack, nil, "")

	// A terminal status is never rewritten.
	l.Finish("tx-1", schemas.TxCommitted, nil, "deadbeef")

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, schemas.TxRolledBack, entries[0].Status)
	assert.Empty(t, entries[0].CommitHash)
}

func TestTransactionLog_Cap(t *testing.T) {
	t.Parallel()
	l := NewTransactionLog(filepath.Join(t.TempDir(), "txlog.json"), zap.NewNop())

	for i := 0; i < safety.MaxHistoryEntries+7; i++ {
		l.Append(schemas.TransactionLogEntry{ID: fmt.Sprintf("tx-%d", i), Status: schemas.TxCommitted})
	}

	entries := l.Entries()
	require.Len(t, entries, safety.MaxHistoryEntries)
	assert.Equal(t, "tx-7", entries[0].ID, "oldest entries are evicted first")
}
