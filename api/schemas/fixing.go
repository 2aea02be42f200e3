package schemas

// -- Fix Routing Schemas --

// FixStrategy identifies how a fix for an issue is produced.
type FixStrategy string

const (
	StrategyRuleBased  FixStrategy = "rule-based"  // Deterministic module output.
	StrategyAIAssisted FixStrategy = "ai-assisted" // Model-generated; policy gated.
	StrategyManual     FixStrategy = "manual"      // No automated fix attempted.
)

// ConfidenceLevel is the discrete banding of a confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"   // value >= 0.8
	ConfidenceMedium ConfidenceLevel = "medium" // value >= 0.5
	ConfidenceLow    ConfidenceLevel = "low"    // everything below
)

// Recommendation is the advisory routing decision derived from a confidence
// score. It is always subordinate to the policy's per-severity disposition.
type Recommendation string

const (
	RecommendAutoApply Recommendation = "auto_apply"
	RecommendSuggest   Recommendation = "suggest"
	RecommendReject    Recommendation = "reject"
)

// ConfidenceFactor is one weighted signal contributing to a score.
type ConfidenceFactor struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// ConfidenceScore is the derived safety assessment of a proposed fix. It is
// computed once by the scorer and never independently mutated.
type ConfidenceScore struct {
	Value          float64            `json:"value"` // In [0,1].
	Level          ConfidenceLevel    `json:"level"`
	Factors        []ConfidenceFactor `json:"factors"`
	Recommendation Recommendation     `json:"recommendation"`
}

// ProposedFix pairs an issue with the patch a module generated for it.
// Proposed fixes live for the duration of a run and are never persisted
// beyond the FixResult.
type ProposedFix struct {
	ID          string          `json:"id"`
	Issue       Issue           `json:"issue"`
	Patch       Patch           `json:"patch"`
	Strategy    FixStrategy     `json:"strategy"`
	Confidence  ConfidenceScore `json:"confidence"`
	ModuleID    string          `json:"module_id"`
	Description string          `json:"description"`
	Provenance  string          `json:"provenance,omitempty"`
}

// FixPhase locates where in the pipeline an error occurred.
type FixPhase string

const (
	PhaseDetection   FixPhase = "detection"
	PhaseGeneration  FixPhase = "generation"
	PhaseValidation  FixPhase = "validation"
	PhaseApplication FixPhase = "application"
)

// FixError is a non-fatal, per-issue error recorded in the run result.
type FixError struct {
	IssueID string   `json:"issue_id"`
	Phase   FixPhase `json:"phase"`
	Message string   `json:"message"`
}

// FixResult aggregates everything a run produced. Every skipped issue,
// rejected fix, or aborted operation appears here with an explicit reason;
// there is no silent failure mode.
type FixResult struct {
	TotalIssues     int           `json:"total_issues"`
	FixableIssues   int           `json:"fixable_issues"`
	AppliedFixes    []ProposedFix `json:"applied_fixes"`
	SuggestedFixes  []ProposedFix `json:"suggested_fixes"`
	RejectedFixes   []ProposedFix `json:"rejected_fixes"`
	UnfixableIssues []Issue       `json:"unfixable_issues"`
	Errors          []FixError    `json:"errors"`
}
