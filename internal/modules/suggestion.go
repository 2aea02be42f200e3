// File: internal/modules/suggestion.go
// Description: Rule-based fix module that turns a detector-provided
// suggestion into a concrete patch for the flagged line.
package modules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// suggestionIssueTypes are the kinds where a detector suggestion is a direct
// line-level replacement. Structural kinds (dead routes, schema drift) need
// more context than a single suggested line and are left to other modules.
var suggestionIssueTypes = []schemas.IssueType{
	schemas.IssueGhostEnv,
	schemas.IssueInsecureDefault,
	schemas.IssueBrokenLink,
	schemas.IssueOrphanConfig,
}

// SuggestionModule rewrites the flagged line of a file with the suggestion
// the upstream detector attached to the issue. It is deterministic and never
// invents content, which is why it declares high confidence.
type SuggestionModule struct {
	logger *zap.Logger
}

// NewSuggestionModule builds the module.
func NewSuggestionModule(logger *zap.Logger) *SuggestionModule {
	return &SuggestionModule{logger: logger.Named("suggestion-module")}
}

// Info implements schemas.FixModule.
func (m *SuggestionModule) Info() schemas.ModuleInfo {
	return schemas.ModuleInfo{
		ID:         "suggestion-rewrite",
		IssueTypes: suggestionIssueTypes,
		Confidence: schemas.ModuleConfidenceHigh,
		AIAssisted: false,
	}
}

// CanFix implements schemas.FixModule. The module needs a target file, a
// 1-based line number, and a non-empty suggestion to work with.
func (m *SuggestionModule) CanFix(issue schemas.Issue) bool {
	return issue.FilePath != "" && issue.Line > 0 && strings.TrimSpace(issue.Suggestion) != ""
}

// GenerateFix implements schemas.FixModule. It reads the current file, swaps
// the flagged line for the suggestion, and emits a patch whose hunks are
// derived from a line-level diff of the two versions.
func (m *SuggestionModule) GenerateFix(ctx context.Context, issue schemas.Issue, fixCtx *schemas.FixContext) (*schemas.Patch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel := filepath.ToSlash(filepath.Clean(issue.FilePath))
	if strings.HasPrefix(rel, "../") || rel == ".." || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("issue path %q is outside the project", issue.FilePath)
	}

	target := filepath.Join(fixCtx.ProjectRoot, rel)
	current, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}

	original := string(current)
	lines := strings.Split(original, "\n")
	if issue.Line > len(lines) {
		return nil, fmt.Errorf("issue points at line %d but %s has only %d lines", issue.Line, rel, len(lines))
	}

	replacement := strings.Split(issue.Suggestion, "\n")
	updated := make([]string, 0, len(lines)+len(replacement)-1)
	updated = append(updated, lines[:issue.Line-1]...)
	updated = append(updated, replacement...)
	updated = append(updated, lines[issue.Line:]...)
	newContent := strings.Join(updated, "\n")

	if newContent == original {
		// The suggestion is already in place; nothing to fix.
		m.logger.Debug("Suggestion already applied; declining.",
			zap.String("issue_id", issue.ID),
			zap.String("path", rel))
		return nil, nil
	}

	return &schemas.Patch{
		FilePath:        rel,
		Hunks:           buildHunks(original, newContent),
		OriginalContent: original,
		NewContent:      newContent,
		IssueID:         issue.ID,
		ModuleID:        m.Info().ID,
	}, nil
}

// Validate implements schemas.FixModule.
func (m *SuggestionModule) Validate(patch *schemas.Patch) schemas.ValidationReport {
	report := schemas.ValidationReport{Valid: true}
	if patch == nil {
		return schemas.ValidationReport{Valid: false, Errors: []string{"nil patch"}}
	}
	if patch.FilePath == "" {
		report.Valid = false
		report.Errors = append(report.Errors, "patch has no file path")
	}
	if patch.NewContent == patch.OriginalContent {
		report.Valid = false
		report.Errors = append(report.Errors, "patch changes nothing")
	}
	if len(patch.Hunks) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "patch carries no hunks")
	}
	return report
}

// FixDescription implements schemas.FixModule.
func (m *SuggestionModule) FixDescription(issue schemas.Issue) string {
	return fmt.Sprintf("replace line %d of %s with the detector's suggested content", issue.Line, issue.FilePath)
}

// buildHunks derives unified-diff style hunks from a line-level diff of the
// two versions. Contiguous insert/delete runs collapse into one hunk; equal
// runs close it.
func buildHunks(oldContent, newContent string) []schemas.Hunk {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lineIndex := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineIndex)

	var (
		hunks   []schemas.Hunk
		current *schemas.Hunk
		oldLine = 1
		newLine = 1
	)
	flush := func() {
		if current != nil {
			hunks = append(hunks, *current)
			current = nil
		}
	}
	ensure := func() {
		if current == nil {
			current = &schemas.Hunk{OldStart: oldLine, NewStart: newLine}
		}
	}

	for _, diff := range diffs {
		count := countLines(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldLine += count
			newLine += count
		case diffmatchpatch.DiffDelete:
			ensure()
			for _, line := range splitDiffLines(diff.Text) {
				current.Lines = append(current.Lines, "-"+line)
			}
			current.OldLines += count
			oldLine += count
		case diffmatchpatch.DiffInsert:
			ensure()
			for _, line := range splitDiffLines(diff.Text) {
				current.Lines = append(current.Lines, "+"+line)
			}
			current.NewLines += count
			newLine += count
		}
	}
	flush()
	return hunks
}

// countLines counts the lines in a diff fragment, where a trailing newline
// terminates the last line rather than starting a new one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func splitDiffLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" && text != "" {
		return []string{""}
	}
	return strings.Split(trimmed, "\n")
}
