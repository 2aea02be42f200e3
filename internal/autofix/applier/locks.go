// File: internal/autofix/applier/locks.go
package applier

import (
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
)

// LockManager provides per-path advisory mutual exclusion for file mutation.
// Locks are keyed by a case- and separator-normalized path, tagged with a
// holder ID, and silently reclaimable once stale. There is no queuing or
// fairness: a failed Acquire means "try later".
type LockManager struct {
	mu         sync.Mutex
	locks      map[string]lockEntry
	staleAfter time.Duration
	logger     *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

type lockEntry struct {
	holder     string
	acquiredAt time.Time
}

// NewLockManager initializes a lock manager with the standard staleness window.
func NewLockManager(logger *zap.Logger) *LockManager {
	return &LockManager{
		locks:      make(map[string]lockEntry),
		staleAfter: safety.LockStaleAfterSeconds * time.Second,
		logger:     logger.Named("lock-manager"),
		now:        time.Now,
	}
}

// lockKey normalizes a path so "Foo\Bar" and "foo/bar" contend for the same
// lock on every platform, not just where the backslash is the OS separator.
func lockKey(p string) string {
	return strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// Acquire takes the lock for path on behalf of holder. It fails when a live
// lock is held by a different holder; stale locks are reclaimed without
// ceremony, and re-acquiring one's own lock refreshes its timestamp.
func (m *LockManager) Acquire(path, holder string) bool {
	key := lockKey(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, held := m.locks[key]; held {
		age := m.now().Sub(entry.acquiredAt)
		if entry.holder != holder && age < m.staleAfter {
			return false
		}
		if entry.holder != holder {
			m.logger.Warn("Reclaiming stale file lock.",
				zap.String("path", path),
				zap.String("stale_holder", entry.holder),
				zap.Duration("age", age))
		}
	}

	m.locks[key] = lockEntry{holder: holder, acquiredAt: m.now()}
	return true
}

// Release drops the lock for path. Only the original holder may release it.
func (m *LockManager) Release(path, holder string) bool {
	key := lockKey(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, held := m.locks[key]
	if !held || entry.holder != holder {
		return false
	}
	delete(m.locks, key)
	return true
}

// Held reports whether a live (non-stale) lock exists for path.
func (m *LockManager) Held(path string) bool {
	key := lockKey(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, held := m.locks[key]
	if !held {
		return false
	}
	return m.now().Sub(entry.acquiredAt) < m.staleAfter
}
