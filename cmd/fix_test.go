// File: cmd/fix_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

func writeIssueReport(t *testing.T, dir string, issues []schemas.Issue) string {
	t.Helper()
	data, err := json.Marshal(issues)
	require.NoError(t, err)
	path := filepath.Join(dir, "issues.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadIssueFiles(t *testing.T) {
	t.Parallel()

	t.Run("concatenates reports in argument order", func(t *testing.T) {
		t.Parallel()
		dirA, dirB := t.TempDir(), t.TempDir()
		fileA := writeIssueReport(t, dirA, []schemas.Issue{{ID: "a-1"}, {ID: "a-2"}})
		fileB := writeIssueReport(t, dirB, []schemas.Issue{{ID: "b-1"}})

		issues, err := loadIssueFiles(context.Background(), []string{fileA, fileB})
		require.NoError(t, err)
		require.Len(t, issues, 3)
		assert.Equal(t, "a-1", issues[0].ID)
		assert.Equal(t, "a-2", issues[1].ID)
		assert.Equal(t, "b-1", issues[2].ID)
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		t.Parallel()
		_, err := loadIssueFiles(context.Background(), []string{"/does/not/exist.json"})
		assert.Error(t, err)
	})

	t.Run("fails on malformed JSON", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
		_, err := loadIssueFiles(context.Background(), []string{path})
		assert.Error(t, err)
	})
}

func TestRunFix_EndToEnd(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "src", "env.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("const URL = OLD\n"), 0o644))

	report := writeIssueReport(t, t.TempDir(), []schemas.Issue{{
		ID:         "i-1",
		Type:       schemas.IssueGhostEnv,
		Severity:   schemas.SeverityLow,
		Message:    "URL drifted from the truthpack",
		Source:     schemas.SourceDriftDetection,
		FilePath:   "src/env.js",
		Line:       1,
		Suggestion: "const URL = NEW",
	}})

	cfg := config.NewDefaultConfig()
	cfg.Autofix.ProjectRoot = root
	cfg.Autofix.TransactionLog = filepath.Join(root, ".remedy", "txlog.json")

	outFile := filepath.Join(t.TempDir(), "result.json")
	var stdout bytes.Buffer
	err := runFix(context.Background(), cfg, zaptest.NewLogger(t), []string{report}, outFile, &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "const URL = NEW\n", string(data))

	assert.Contains(t, stdout.String(), "Applied:   1")

	resultData, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result schemas.FixResult
	require.NoError(t, json.Unmarshal(resultData, &result))
	require.Len(t, result.AppliedFixes, 1)
	assert.Equal(t, "suggestion-rewrite", result.AppliedFixes[0].ModuleID)
}

func TestRunFix_DryRunLeavesFilesAlone(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "app.py")
	require.NoError(t, os.WriteFile(target, []byte("DEBUG = True\n"), 0o644))

	report := writeIssueReport(t, t.TempDir(), []schemas.Issue{{
		ID:         "i-1",
		Type:       schemas.IssueInsecureDefault,
		Severity:   schemas.SeverityLow,
		Message:    "debug enabled by default",
		Source:     schemas.SourceStaticAnalysis,
		FilePath:   "app.py",
		Line:       1,
		Suggestion: "DEBUG = False",
	}})

	cfg := config.NewDefaultConfig()
	cfg.Autofix.ProjectRoot = root
	cfg.Autofix.TransactionLog = filepath.Join(root, ".remedy", "txlog.json")
	cfg.Autofix.DryRun = true

	var stdout bytes.Buffer
	err := runFix(context.Background(), cfg, zaptest.NewLogger(t), []string{report}, "", &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG = True\n", string(data))
	assert.Contains(t, stdout.String(), "Applied:   1")
}
