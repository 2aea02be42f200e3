// File: internal/autofix/applier/validate.go
package applier

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ValidationResult carries the outcome of the pre-write validation pipeline.
// Errors block the apply; warnings never do.
type ValidationResult struct {
	Valid    bool
	Errors   []*ApplyError
	Warnings []string
}

func (r *ValidationResult) addError(err *ApplyError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// firstError returns the leading blocking error, or nil.
func (r *ValidationResult) firstError() *ApplyError {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// validatePatch runs the full rule set against a patch whose path has already
// been sanitized and resolved to resolvedPath. checkDisk toggles the
// staleness comparison; transaction pre-validation skips it because earlier
// patches in the same transaction may legitimately rewrite the pre-image.
func (a *Applier) validatePatch(patch *schemas.Patch, rel, resolvedPath string, checkDisk bool) *ValidationResult {
	result := &ValidationResult{Valid: true}

	// Structural checks.
	if rel == "" {
		result.addError(newError(schemas.CodeValidationFailed, patch.FilePath, "patch has no usable file path"))
		return result
	}
	if isProtectedPath(rel) {
		result.addError(newError(schemas.CodeProtectedFile, rel, "path is protected and can never be patched"))
		return result
	}
	if patch.NewContent == "" && patch.OriginalContent == "" && len(patch.Hunks) == 0 {
		result.addError(newError(schemas.CodeValidationFailed, rel, "patch carries no content"))
		return result
	}

	// Size ceilings. These are safety invariants, not policy.
	payload := len(patch.OriginalContent) + len(patch.NewContent)
	for _, hunk := range patch.Hunks {
		for _, line := range hunk.Lines {
			payload += len(line)
		}
	}
	if payload > safety.MaxPatchBytes {
		result.addError(newError(schemas.CodeSizeExceeded, rel,
			fmt.Sprintf("patch payload is %d bytes; limit is %d", payload, safety.MaxPatchBytes)))
	}
	if len(patch.NewContent) > safety.MaxFileBytes {
		result.addError(newError(schemas.CodeSizeExceeded, rel,
			fmt.Sprintf("new content is %d bytes; limit is %d", len(patch.NewContent), safety.MaxFileBytes)))
	}
	if len(patch.Hunks) > safety.MaxHunksPerPatch {
		result.addError(newError(schemas.CodeSizeExceeded, rel,
			fmt.Sprintf("patch has %d hunks; limit is %d", len(patch.Hunks), safety.MaxHunksPerPatch)))
	}
	for i, hunk := range patch.Hunks {
		if len(hunk.Lines) > safety.MaxLinesPerHunk {
			result.addError(newError(schemas.CodeSizeExceeded, rel,
				fmt.Sprintf("hunk %d has %d lines; limit is %d", i, len(hunk.Lines), safety.MaxLinesPerHunk)))
		}
	}
	if !result.Valid {
		return result
	}

	// Staleness: the on-disk pre-image must match the patch's expectation
	// exactly. The line-count delta is diagnostic only; equality is what gates.
	if checkDisk && patch.OriginalContent != "" {
		current, err := os.ReadFile(resolvedPath)
		if err != nil {
			if os.IsNotExist(err) {
				result.addError(newError(schemas.CodeFileNotFound, rel, "patch expects an existing file but none is on disk"))
			} else {
				result.addError(wrapError(schemas.CodeValidationFailed, rel, "cannot read current content", err))
			}
			return result
		}
		if string(current) != patch.OriginalContent {
			currentLines := strings.Count(string(current), "\n") + 1
			expectedLines := strings.Count(patch.OriginalContent, "\n") + 1
			if currentLines != expectedLines {
				result.addWarning("line count drifted: on disk %d, expected %d", currentLines, expectedLines)
			}
			result.addError(newError(schemas.CodeContentMismatch, rel, "on-disk content differs from the patch pre-image"))
			return result
		}
	}

	// Syntax sanity on the post-image.
	switch classify(rel) {
	case classC, classScript:
		if err := scanSource(rel, patch.NewContent); err != nil {
			result.addError(wrapError(schemas.CodeValidationFailed, rel, "syntax sanity check failed", err))
		}
	case classJSON:
		if !json.Valid([]byte(patch.NewContent)) {
			result.addError(newError(schemas.CodeValidationFailed, rel, "new content is not valid JSON"))
		}
	case classYAML:
		var sink any
		if err := yaml.Unmarshal([]byte(patch.NewContent), &sink); err != nil {
			result.addError(wrapError(schemas.CodeValidationFailed, rel, "new content is not valid YAML", err))
		}
	}

	// Content-safety heuristics: warnings only, never blocking.
	scanContentSafety(patch.NewContent, result)

	return result
}

// -- Content-safety heuristics --

var (
	credentialPattern  = regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|access[_-]?token|private[_-]?key)\s*[:=]\s*['"][^'"]{4,}['"]`)
	dynamicExecPattern = regexp.MustCompile(`\beval\s*\(|\bnew\s+Function\s*\(|\bexec\s*\(|child_process|os\.system|subprocess\.`)
	debugPattern       = regexp.MustCompile(`console\.(log|debug|trace)\s*\(|\bfmt\.Print|\bprintln!\(|\bprint\s*\(.*#\s*debug|debugger;?`)
	todoPattern        = regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX|HACK)\b`)
)

// scanContentSafety flags patterns that deserve human attention in an
// automatically generated change. None of these block the apply.
func scanContentSafety(content string, result *ValidationResult) {
	if credentialPattern.MatchString(content) {
		result.addWarning("new content matches an embedded-credential pattern")
	}
	if dynamicExecPattern.MatchString(content) {
		result.addWarning("new content contains dynamic code execution constructs")
	}
	if debugPattern.MatchString(content) {
		result.addWarning("new content contains debug/log statements")
	}
	if todoPattern.MatchString(content) {
		result.addWarning("new content contains TODO/FIXME markers")
	}
}
