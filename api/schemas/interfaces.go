package schemas

import (
	"context"
)

// -- Fix Module Contract --

// ModuleConfidence is a fix module's self-declared reliability.
type ModuleConfidence string

const (
	ModuleConfidenceHigh   ModuleConfidence = "high"
	ModuleConfidenceMedium ModuleConfidence = "medium"
	ModuleConfidenceLow    ModuleConfidence = "low"
)

// ModuleInfo is the static metadata a fix module registers with.
type ModuleInfo struct {
	// ID uniquely identifies the module for circuit-breaker accounting.
	ID string
	// IssueTypes lists the issue kinds this module can produce fixes for.
	IssueTypes []IssueType
	// Confidence is the module's self-declared reliability, folded into the
	// confidence score of every fix it produces.
	Confidence ModuleConfidence
	// AIAssisted marks modules whose fixes are model-generated. They are only
	// invoked when the policy allows AI fixes.
	AIAssisted bool
}

// ValidationReport is a module's verdict on its own generated patch.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// FixModule is the contract every fix producer implements. Modules are
// registered by issue type and invoked sequentially by the orchestrator;
// implementations must tolerate concurrent calls only if they register for
// multiple orchestrators.
type FixModule interface {
	// Info returns the module's static metadata.
	Info() ModuleInfo

	// CanFix reports whether the module believes it can fix this specific
	// issue. A false return makes the issue unfixable without error.
	CanFix(issue Issue) bool

	// GenerateFix produces a patch for the issue, or nil when the module
	// declines. The call runs under the orchestrator's per-issue timeout.
	GenerateFix(ctx context.Context, issue Issue, fixCtx *FixContext) (*Patch, error)

	// Validate checks a generated patch before scoring. An invalid or
	// erroring validation makes the issue unfixable without counting as a
	// module failure.
	Validate(patch *Patch) ValidationReport

	// FixDescription returns a human-readable summary of what the fix does.
	FixDescription(issue Issue) string
}

// -- Fix Context --

// Truthpack is externally maintained ground-truth data handed read-only to
// fix modules: the routes, environment variables, auth model, and contracts
// the project is supposed to have.
type Truthpack struct {
	Routes    []RouteEntry      `json:"routes"`
	Env       []EnvEntry        `json:"env"`
	Auth      AuthModel         `json:"auth"`
	Contracts []ContractEntry   `json:"contracts"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// RouteEntry declares one route the project is expected to serve.
type RouteEntry struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler,omitempty"`
}

// EnvEntry declares one environment variable the project may read.
type EnvEntry struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// AuthModel declares the project's authentication surface.
type AuthModel struct {
	Scheme string            `yaml:"scheme" json:"scheme"`
	Roles  []string          `yaml:"roles" json:"roles"`
	Rules  map[string]string `yaml:"rules" json:"rules"`
}

// ContractEntry names one external contract and its pinned version.
type ContractEntry struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Path    string `yaml:"path" json:"path"`
}

// FixContext is the read-only environment the orchestrator supplies to each
// module invocation.
type FixContext struct {
	// ProjectRoot is the resolved absolute root all patch paths are confined to.
	ProjectRoot string

	// Policy is the active, validated policy. Modules may consult limits but
	// cannot change dispositions.
	Policy *AutoFixPolicy

	// Truthpack is the loaded ground-truth data, possibly empty when the
	// project ships none.
	Truthpack *Truthpack

	// ExistingPatches lists patches already applied earlier in this run, so
	// modules can avoid generating conflicting fixes for the same file.
	ExistingPatches []AppliedPatch
}

// -- Policy --

// SeverityAction is a policy's disposition for one severity band.
type SeverityAction string

const (
	ActionAutoApply SeverityAction = "auto_apply"
	ActionSuggest   SeverityAction = "suggest"
	ActionReject    SeverityAction = "reject"
	// ActionNone defers to the confidence score's own recommendation.
	ActionNone SeverityAction = "none"
)

// AutoFixPolicy controls limits and per-severity dispositions. It is loaded
// once per orchestrator instance and treated as immutable afterwards. Safety
// limits are compile-time constants and are NOT part of the policy; nothing
// here can raise them.
type AutoFixPolicy struct {
	Enabled             bool                        `mapstructure:"enabled" json:"enabled"`
	MaxFilesPerFix      int                         `mapstructure:"max_files_per_fix" json:"max_files_per_fix"`
	MaxLinesPerFix      int                         `mapstructure:"max_lines_per_fix" json:"max_lines_per_fix"`
	BlockedPaths        []string                    `mapstructure:"blocked_paths" json:"blocked_paths"`
	SeverityThresholds  map[Severity]SeverityAction `mapstructure:"severity_thresholds" json:"severity_thresholds"`
	ConfidenceThreshold float64                     `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	RequireTests        bool                        `mapstructure:"require_tests" json:"require_tests"`
	AllowAIFixes        bool                        `mapstructure:"allow_ai_fixes" json:"allow_ai_fixes"`
}
