// File: internal/autofix/scorer.go
package autofix

import (
	"fmt"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// Factor weights. They sum to 1.0; the score is a plain weighted average.
const (
	weightOrigin      = 0.30
	weightSeverity    = 0.20
	weightScope       = 0.25
	weightReliability = 0.25
)

// severityFactor maps issue severity to a safety signal. Lower severity is
// safer to change automatically, so it scores higher.
var severityFactor = map[schemas.Severity]float64{
	schemas.SeverityLow:      1.0,
	schemas.SeverityMedium:   0.8,
	schemas.SeverityHigh:     0.5,
	schemas.SeverityCritical: 0.3,
}

// reliabilityFactor maps a module's self-declared confidence to a signal.
var reliabilityFactor = map[schemas.ModuleConfidence]float64{
	schemas.ModuleConfidenceHigh:   1.0,
	schemas.ModuleConfidenceMedium: 0.7,
	schemas.ModuleConfidenceLow:    0.4,
}

// scoreConfidence combines the four weighted signals into a score, level, and
// advisory recommendation. The recommendation is always subordinate to the
// policy disposition computed later; it exists so a policy of "none" can fall
// back to something principled.
func scoreConfidence(issue schemas.Issue, patch *schemas.Patch, strategy schemas.FixStrategy, moduleConf schemas.ModuleConfidence, policy *schemas.AutoFixPolicy) schemas.ConfidenceScore {
	origin := 0.6
	if strategy == schemas.StrategyRuleBased {
		origin = 1.0
	}

	severity, ok := severityFactor[issue.Severity]
	if !ok {
		severity = 0.3
	}

	linesChanged := patch.LinesChanged()
	scope := 0.0
	if policy.MaxLinesPerFix > 0 {
		scope = 1.0 - float64(linesChanged)/float64(policy.MaxLinesPerFix)
		if scope < 0 {
			scope = 0
		}
	}

	reliability, ok := reliabilityFactor[moduleConf]
	if !ok {
		reliability = 0.4
	}

	value := weightOrigin*origin + weightSeverity*severity + weightScope*scope + weightReliability*reliability

	score := schemas.ConfidenceScore{
		Value: value,
		Factors: []schemas.ConfidenceFactor{
			{
				Name:        "fix_origin",
				Weight:      weightOrigin,
				Value:       origin,
				Description: fmt.Sprintf("strategy is %s", strategy),
			},
			{
				Name:        "issue_severity",
				Weight:      weightSeverity,
				Value:       severity,
				Description: fmt.Sprintf("severity is %s", issue.Severity),
			},
			{
				Name:        "change_scope",
				Weight:      weightScope,
				Value:       scope,
				Description: fmt.Sprintf("%d line(s) changed of %d allowed", linesChanged, policy.MaxLinesPerFix),
			},
			{
				Name:        "module_reliability",
				Weight:      weightReliability,
				Value:       reliability,
				Description: fmt.Sprintf("module declares %s confidence", moduleConf),
			},
		},
	}

	switch {
	case value >= 0.8:
		score.Level = schemas.ConfidenceHigh
	case value >= 0.5:
		score.Level = schemas.ConfidenceMedium
	default:
		score.Level = schemas.ConfidenceLow
	}

	switch {
	case value >= 0.9, issue.Severity == schemas.SeverityLow && value >= 0.7:
		score.Recommendation = schemas.RecommendAutoApply
	case value >= 0.3:
		score.Recommendation = schemas.RecommendSuggest
	default:
		score.Recommendation = schemas.RecommendReject
	}

	return score
}
