// File: internal/autofix/applier/commit.go
package applier

import (
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// Committer records committed transactions as local git commits so the
// operator can inspect or revert them with ordinary git tooling. It never
// pushes, and a commit failure never fails the transaction that produced it.
type Committer struct {
	root   string
	author string
	email  string
	logger *zap.Logger
}

// NewCommitter builds a committer rooted at the project root. It verifies the
// root is actually a git repository up front so misconfiguration surfaces at
// startup rather than on the first transaction.
func NewCommitter(root string, cfg config.GitConfig, logger *zap.Logger) (*Committer, error) {
	if _, err := git.PlainOpen(root); err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", root, err)
	}
	return &Committer{
		root:   root,
		author: cfg.AuthorName,
		email:  cfg.AuthorEmail,
		logger: logger.Named("committer"),
	}, nil
}

// CommitTransaction stages the files touched by the transaction and commits
// them, returning the commit hash.
func (c *Committer) CommitTransaction(txID string, fixes []schemas.AppliedPatch) (string, error) {
	repo, err := git.PlainOpen(c.root)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	for _, fix := range fixes {
		if _, err := wt.Add(fix.FilePath); err != nil {
			return "", fmt.Errorf("staging %s: %w", fix.FilePath, err)
		}
	}

	hash, err := wt.Commit(commitMessage(txID, fixes), &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.author,
			Email: c.email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing transaction %s: %w", txID, err)
	}

	c.logger.Info("Recorded transaction as git commit.",
		zap.String("tx_id", txID),
		zap.String("hash", hash.String()),
		zap.Int("files", len(fixes)))
	return hash.String(), nil
}

// commitMessage summarizes the transaction in the subject line and lists the
// touched files in the body.
func commitMessage(txID string, fixes []schemas.AppliedPatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fix: apply %d automated fix(es)\n\n", len(fixes))
	for _, fix := range fixes {
		fmt.Fprintf(&b, "- %s", fix.FilePath)
		if fix.IssueID != "" {
			fmt.Fprintf(&b, " (issue %s)", fix.IssueID)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nTransaction: %s\n", txID)
	return b.String()
}
