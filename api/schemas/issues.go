package schemas

import (
	"github.com/go-playground/validator/v10"
)

// -- Issue Schemas --

// Severity represents the severity level of a reported issue. The values are
// lowercase to align with the JSON emitted by upstream detectors.
type Severity string

// Constants defining the standard severity levels for issues.
const (
	SeverityLow      Severity = "low"      // Safe to fix automatically in most policies.
	SeverityMedium   Severity = "medium"   // Routine drift; usually auto-fixable.
	SeverityHigh     Severity = "high"     // Needs a human eye by default.
	SeverityCritical Severity = "critical" // Never auto-applied under the default policy.
)

// KnownSeverities lists every valid severity in ascending order of impact.
var KnownSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// IssueType categorizes a reported issue. The set is closed: fix modules
// register against these types, and anything else is dropped at ingestion.
type IssueType string

// The ten issue kinds the engine understands.
const (
	IssueGhostEnv          IssueType = "ghost-env"          // Env var referenced in code but absent from the truthpack.
	IssueDeadRoute         IssueType = "dead-route"         // Route declared but unreachable.
	IssueUnusedAuth        IssueType = "unused-auth"        // Auth rule with no matching route.
	IssueDriftSchema       IssueType = "drift-schema"       // Persisted schema drifted from its contract.
	IssueStaleContract     IssueType = "stale-contract"     // Contract older than the implementation it describes.
	IssueMissingValidation IssueType = "missing-validation" // Input accepted without validation.
	IssueInsecureDefault   IssueType = "insecure-default"   // Config default weaker than policy allows.
	IssueBrokenLink        IssueType = "broken-link"        // Internal reference pointing nowhere.
	IssueOrphanConfig      IssueType = "orphan-config"      // Config key no code reads.
	IssuePolicyGap         IssueType = "policy-gap"         // Declared policy with no enforcement point.
)

// KnownIssueTypes is the closed set of types accepted at ingestion.
var KnownIssueTypes = map[IssueType]bool{
	IssueGhostEnv:          true,
	IssueDeadRoute:         true,
	IssueUnusedAuth:        true,
	IssueDriftSchema:       true,
	IssueStaleContract:     true,
	IssueMissingValidation: true,
	IssueInsecureDefault:   true,
	IssueBrokenLink:        true,
	IssueOrphanConfig:      true,
	IssuePolicyGap:         true,
}

// IssueSource identifies the upstream detector class that reported an issue.
type IssueSource string

// Constants for the supported issue sources.
const (
	SourceStaticAnalysis  IssueSource = "static-analysis"
	SourceRuntime         IssueSource = "runtime"
	SourceDriftDetection  IssueSource = "drift-detection"
	SourcePolicyViolation IssueSource = "policy-violation"
)

// Issue is an immutable report of a single problem eligible for automated
// fixing. Issues are created by upstream detectors, validated once at
// ingestion, and never mutated afterwards.
type Issue struct {
	ID       string      `json:"id" validate:"required"`
	Type     IssueType   `json:"type" validate:"required"`
	Severity Severity    `json:"severity" validate:"required,oneof=low medium high critical"`
	Message  string      `json:"message" validate:"required"`
	Source   IssueSource `json:"source" validate:"required,oneof=static-analysis runtime drift-detection policy-violation"`

	// Optional location of the issue within the project.
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line,omitempty" validate:"gte=0"`
	Column   int    `json:"column,omitempty" validate:"gte=0"`

	// Suggestion is an optional replacement proposed by the detector itself.
	// Rule based modules may turn it directly into a patch.
	Suggestion string `json:"suggestion,omitempty"`

	// Metadata carries detector-specific context (e.g. the contract version a
	// drift was measured against).
	Metadata map[string]string `json:"metadata,omitempty"`

	// Provenance links back to the upstream report that produced this issue.
	Provenance string `json:"provenance,omitempty"`
}

// issueValidator is shared; validator.Validate is safe for concurrent use.
var issueValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateIssue checks an issue against the ingestion rules. Issues that fail
// are dropped by the orchestrator, not errored.
func ValidateIssue(issue Issue) error {
	if err := issueValidator.Struct(issue); err != nil {
		return err
	}
	if !KnownIssueTypes[issue.Type] {
		return &UnknownIssueTypeError{Type: issue.Type}
	}
	return nil
}

// UnknownIssueTypeError reports an issue type outside the closed set.
type UnknownIssueTypeError struct {
	Type IssueType
}

func (e *UnknownIssueTypeError) Error() string {
	return "unknown issue type: " + string(e.Type)
}
