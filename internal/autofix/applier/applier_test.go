// File: internal/autofix/applier/applier_test.go
package applier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

func newTestApplier(t *testing.T) *Applier {
	t.Helper()
	root := t.TempDir()
	cfg := config.AutofixConfig{
		ProjectRoot:    root,
		BackupDir:      ".backups",
		TransactionLog: filepath.Join(root, "txlog.json"),
	}
	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func makePatch(rel, original, updated string) *schemas.Patch {
	return &schemas.Patch{
		FilePath:        rel,
		OriginalContent: original,
		NewContent:      updated,
		IssueID:         "issue-1",
		ModuleID:        "test-module",
	}
}

func TestApplier_Apply(t *testing.T) {
	t.Parallel()

	t.Run("applies a patch with a verified backup", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "const port = 8080\n"
		updated := "const port = 9090\n"
		target := writeFile(t, a.Root(), "src/server.js", original)

		result := a.Apply(makePatch("src/server.js", original, updated), Options{Backup: true})
		require.True(t, result.Success, "apply failed: %v", result.Error)

		assert.Equal(t, updated, readFile(t, target))
		require.NotEmpty(t, result.BackupPath)
		assert.Equal(t, original, readFile(t, result.BackupPath))
		assert.True(t, strings.HasSuffix(result.BackupPath, ".bak"))

		history := a.History()
		require.Len(t, history, 1)
		assert.Equal(t, "src/server.js", history[0].FilePath)
		assert.Equal(t, Checksum([]byte(original)), history[0].BackupChecksum)
	})

	t.Run("creates a new file when no pre-image is expected", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)

		result := a.Apply(makePatch("docs/new.md", "", "fresh content\n"), Options{Backup: true})
		require.True(t, result.Success, "apply failed: %v", result.Error)
		assert.Equal(t, "fresh content\n", readFile(t, filepath.Join(a.Root(), "docs/new.md")))
		assert.Empty(t, result.BackupPath, "no backup for a file that did not exist")
	})

	t.Run("stale pre-image fails with CONTENT_MISMATCH and no write", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		onDisk := "actual content\n"
		target := writeFile(t, a.Root(), "src/app.js", onDisk)

		patch := makePatch("src/app.js", "expected content\n", "patched\n")
		result := a.Apply(patch, Options{Backup: true})

		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeContentMismatch, result.Error.Code)
		assert.Equal(t, onDisk, readFile(t, target), "target must be untouched")
		assert.Empty(t, a.History())
	})

	t.Run("traversal path fails with PATH_TRAVERSAL", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)

		result := a.Apply(makePatch("../../etc/passwd", "", "root::0:0\n"), Options{})
		require.False(t, result.Success)
		assert.Equal(t, schemas.CodePathTraversal, result.Error.Code)
	})

	t.Run("protected path fails with PROTECTED_FILE", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)

		for _, rel := range []string{".env", ".git/config", "frontend/package-lock.json"} {
			result := a.Apply(makePatch(rel, "", "overwritten\n"), Options{})
			require.False(t, result.Success, "path %s must be protected", rel)
			assert.Equal(t, schemas.CodeProtectedFile, result.Error.Code)
		}
	})

	t.Run("held lock fails with LOCKED and no side effects", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "content\n"
		target := writeFile(t, a.Root(), "src/app.js", original)

		resolved, err := ResolveWithinRoot(a.Root(), "src/app.js")
		require.NoError(t, err)
		require.True(t, a.Locks().Acquire(resolved, "someone-else"))

		result := a.Apply(makePatch("src/app.js", original, "patched\n"), Options{})
		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeLocked, result.Error.Code)
		assert.Equal(t, original, readFile(t, target))
	})

	t.Run("lock is released after a successful apply", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "v1\n"
		writeFile(t, a.Root(), "src/app.js", original)

		require.True(t, a.Apply(makePatch("src/app.js", original, "v2\n"), Options{}).Success)
		require.True(t, a.Apply(makePatch("src/app.js", "v2\n", "v3\n"), Options{}).Success,
			"second apply must not be blocked by a leaked lock")
	})

	t.Run("dry run validates without writing", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "untouched\n"
		target := writeFile(t, a.Root(), "src/app.js", original)

		result := a.Apply(makePatch("src/app.js", original, "would be written\n"), Options{DryRun: true})
		require.True(t, result.Success)
		assert.Equal(t, original, readFile(t, target))
		assert.Empty(t, a.History())
	})

	t.Run("hunk count over the limit fails with SIZE_EXCEEDED", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "x\n"
		writeFile(t, a.Root(), "src/app.js", original)

		patch := makePatch("src/app.js", original, "y\n")
		patch.Hunks = make([]schemas.Hunk, safety.MaxHunksPerPatch+1)
		result := a.Apply(patch, Options{})

		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeSizeExceeded, result.Error.Code)
	})

	t.Run("rejects a patch whose total payload exceeds the byte ceiling", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "x\n"
		target := writeFile(t, a.Root(), "big.txt", original)

		patch := makePatch("big.txt", original, strings.Repeat("a", safety.MaxPatchBytes+1))
		result := a.Apply(patch, Options{})

		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeSizeExceeded, result.Error.Code)
		assert.Equal(t, original, readFile(t, target))
	})

	t.Run("broken syntax in the post-image fails validation", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "func ok() {}\n"
		target := writeFile(t, a.Root(), "main.go", original)

		result := a.Apply(makePatch("main.go", original, "func broken() {\n"), Options{})
		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeValidationFailed, result.Error.Code)
		assert.Equal(t, original, readFile(t, target))
	})

	t.Run("invalid JSON post-image fails validation", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := `{"ok": true}`
		writeFile(t, a.Root(), "config.json", original)

		result := a.Apply(makePatch("config.json", original, `{"ok": `), Options{})
		require.False(t, result.Success)
		assert.Equal(t, schemas.CodeValidationFailed, result.Error.Code)
	})

	t.Run("no temp files remain after success or failure", func(t *testing.T) {
		t.Parallel()
		a := newTestApplier(t)
		original := "v1\n"
		writeFile(t, a.Root(), "app.txt", original)

		require.True(t, a.Apply(makePatch("app.txt", original, "v2\n"), Options{}).Success)
		require.False(t, a.Apply(makePatch("app.txt", "wrong pre-image\n", "v3\n"), Options{}).Success)

		entries, err := os.ReadDir(a.Root())
		require.NoError(t, err)
		for _, entry := range entries {
			assert.False(t, strings.HasPrefix(entry.Name(), ".remedy-"), "leftover temp file %s", entry.Name())
		}
	})
}

func TestApplier_BackupPruning(t *testing.T) {
	t.Parallel()
	a := newTestApplier(t)

	content := "v0\n"
	writeFile(t, a.Root(), "app.txt", content)
	for i := 0; i < safety.MaxBackupsRetained+5; i++ {
		next := content + "x"
		result := a.Apply(makePatch("app.txt", content, next), Options{Backup: true})
		require.True(t, result.Success, "apply %d failed: %v", i, result.Error)
		content = next
	}

	entries, err := os.ReadDir(filepath.Join(a.Root(), ".backups"))
	require.NoError(t, err)
	count := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".bak") {
			count++
		}
	}
	assert.LessOrEqual(t, count, safety.MaxBackupsRetained)
}

func TestApplier_BackupNameCollision(t *testing.T) {
	t.Parallel()
	a := newTestApplier(t)
	require.NoError(t, os.MkdirAll(a.backupDir, 0o755))

	// Two backups of the same file in the same timestamp tick must not
	// overwrite each other.
	base := "app.js.2026-01-01T00-00-00.000Z"
	first, err := a.createBackup(base, []byte("one"))
	require.NoError(t, err)
	second, err := a.createBackup(base, []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "one", readFile(t, first))
	assert.Equal(t, "two", readFile(t, second))
	assert.True(t, strings.HasSuffix(second, ".bak"))
}

func TestApplier_HistoryCap(t *testing.T) {
	t.Parallel()
	a := newTestApplier(t)

	content := "v0\n"
	writeFile(t, a.Root(), "app.txt", content)
	for i := 0; i < safety.MaxHistoryEntries+10; i++ {
		next := content + "y"
		require.True(t, a.Apply(makePatch("app.txt", content, next), Options{}).Success)
		content = next
	}
	assert.Len(t, a.History(), safety.MaxHistoryEntries)
}

func TestChecksum(t *testing.T) {
	t.Parallel()
	// sha256 of the empty string is a well-known vector.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Checksum(nil))
	assert.NotEqual(t, Checksum([]byte("a")), Checksum([]byte("b")))
}
