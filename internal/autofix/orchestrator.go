// File: internal/autofix/orchestrator.go
// Description: Top-level fix pipeline. Validates issues, routes each one to a
// registered fix module, scores the proposed patch, and dispatches it to the
// applier according to policy.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/applier"
	"github.com/xkilldash9x/remedy-cli/internal/autofix/safety"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/truthpack"
)

// ErrRunInFlight is returned when ProcessIssues is called while another run
// is still executing on the same orchestrator.
var ErrRunInFlight = errors.New("a fix run is already in flight on this orchestrator")

// Orchestrator drives the fix pipeline for one project root. Modules are
// registered by issue type before the first run; runs are strictly
// sequential, and at most one is in flight per instance.
type Orchestrator struct {
	cfg     config.AutofixConfig
	logger  *zap.Logger
	applier *applier.Applier

	breakers  *BreakerRegistry
	blocked   *PathMatcher
	truth     *schemas.Truthpack
	aiLimiter *rate.Limiter

	mu       sync.Mutex
	registry map[schemas.IssueType]schemas.FixModule
	running  bool
}

// NewOrchestrator builds an orchestrator and its applier for the configured
// project root. The truthpack is loaded eagerly and tolerantly: a project
// without one gets an empty truthpack, not an error.
func NewOrchestrator(cfg config.AutofixConfig, logger *zap.Logger) (*Orchestrator, error) {
	log := logger.Named("orchestrator")

	app, err := applier.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("building patch applier: %w", err)
	}

	truth, err := truthpack.Load(app.Root(), logger)
	if err != nil {
		return nil, fmt.Errorf("loading truthpack: %w", err)
	}

	o := &Orchestrator{
		cfg:      cfg,
		logger:   log,
		applier:  app,
		breakers: NewBreakerRegistry(cfg.BreakerThreshold, cfg.BreakerReset, logger),
		blocked:  NewPathMatcher(cfg.Policy.BlockedPaths, log),
		truth:    truth,
		registry: make(map[schemas.IssueType]schemas.FixModule),
	}
	if cfg.AIRequestsPerSecond > 0 {
		o.aiLimiter = rate.NewLimiter(rate.Limit(cfg.AIRequestsPerSecond), 1)
	}
	return o, nil
}

// Applier exposes the underlying patch applier, primarily so callers can run
// explicit transactions over suggested fixes after human review.
func (o *Orchestrator) Applier() *applier.Applier { return o.applier }

// RegisterModule registers a fix module for every issue type it declares.
// Later registrations override earlier ones per type, with a warning.
func (o *Orchestrator) RegisterModule(module schemas.FixModule) {
	info := module.Info()

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, issueType := range info.IssueTypes {
		if existing, ok := o.registry[issueType]; ok {
			o.logger.Warn("Module registration overrides an earlier one.",
				zap.String("issue_type", string(issueType)),
				zap.String("previous", existing.Info().ID),
				zap.String("replacement", info.ID))
		}
		o.registry[issueType] = module
	}
	o.logger.Info("Fix module registered.",
		zap.String("module_id", info.ID),
		zap.Int("issue_types", len(info.IssueTypes)),
		zap.Bool("ai_assisted", info.AIAssisted))
}

// moduleFor returns the registered module for an issue type, or nil.
func (o *Orchestrator) moduleFor(issueType schemas.IssueType) schemas.FixModule {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry[issueType]
}

// maxIssuesPerRun derives the per-run issue ceiling. It tracks the
// transaction size limit so a single run can never queue more work than two
// full transactions.
func maxIssuesPerRun() int {
	return 2 * safety.MaxPatchesPerTransaction
}

// ProcessIssues runs the full pipeline over a batch of issues and reports
// everything that happened. It rejects re-entrant calls; module failures and
// per-issue errors never abort the run, only cancellation of ctx does.
func (o *Orchestrator) ProcessIssues(ctx context.Context, issues []schemas.Issue) (*schemas.FixResult, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInFlight
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	result := &schemas.FixResult{TotalIssues: len(issues)}

	// Ingestion: invalid issues are dropped, never errored.
	valid := make([]schemas.Issue, 0, len(issues))
	for _, issue := range issues {
		if err := schemas.ValidateIssue(issue); err != nil {
			o.logger.Debug("Dropping invalid issue at ingestion.",
				zap.String("issue_id", issue.ID),
				zap.Error(err))
			continue
		}
		valid = append(valid, issue)
	}

	if ceiling := maxIssuesPerRun(); len(valid) > ceiling {
		result.Errors = append(result.Errors, schemas.FixError{
			Phase:   schemas.PhaseDetection,
			Message: fmt.Sprintf("run capped at %d issues; %d excess issues not processed", ceiling, len(valid)-ceiling),
		})
		valid = valid[:ceiling]
	}

	if !o.cfg.Policy.Enabled {
		o.logger.Info("Fix policy disabled; reporting all issues as unfixable.", zap.Int("issues", len(valid)))
		result.UnfixableIssues = append(result.UnfixableIssues, valid...)
		return result, nil
	}

	o.logger.Info("Fix run started.",
		zap.Int("total", len(issues)),
		zap.Int("valid", len(valid)),
		zap.Bool("dry_run", o.cfg.DryRun))

	var appliedThisRun []schemas.AppliedPatch

	for i, issue := range valid {
		// Cancellation is checked between issues; already-applied patches stay.
		if ctx.Err() != nil {
			for _, remaining := range valid[i:] {
				result.Errors = append(result.Errors, schemas.FixError{
					IssueID: remaining.ID,
					Phase:   schemas.PhaseGeneration,
					Message: fmt.Sprintf("%s: run cancelled before this issue was processed", schemas.CodeAborted),
				})
				result.UnfixableIssues = append(result.UnfixableIssues, remaining)
			}
			o.logger.Warn("Fix run aborted by cancellation.", zap.Int("unprocessed", len(valid)-i))
			break
		}

		o.processIssue(ctx, issue, result, &appliedThisRun)
	}

	o.mergeSameFileFixes(result)

	o.logger.Info("Fix run finished.",
		zap.Int("fixable", result.FixableIssues),
		zap.Int("applied", len(result.AppliedFixes)),
		zap.Int("suggested", len(result.SuggestedFixes)),
		zap.Int("rejected", len(result.RejectedFixes)),
		zap.Int("unfixable", len(result.UnfixableIssues)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// processIssue runs steps blocked-path through dispatch for one issue,
// mutating result in place.
func (o *Orchestrator) processIssue(ctx context.Context, issue schemas.Issue, result *schemas.FixResult, appliedThisRun *[]schemas.AppliedPatch) {
	log := o.logger.With(zap.String("issue_id", issue.ID), zap.String("type", string(issue.Type)))

	if issue.FilePath != "" {
		if blocked, pattern := o.blocked.Matches(issue.FilePath); blocked {
			result.Errors = append(result.Errors, schemas.FixError{
				IssueID: issue.ID,
				Phase:   schemas.PhaseDetection,
				Message: fmt.Sprintf("path %q is blocked by policy pattern %q", issue.FilePath, pattern),
			})
			result.UnfixableIssues = append(result.UnfixableIssues, issue)
			return
		}
	}

	module := o.moduleFor(issue.Type)
	strategy := o.selectStrategy(issue, module)
	if strategy == schemas.StrategyManual {
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		return
	}
	info := module.Info()

	if !o.breakers.Allow(info.ID) {
		result.Errors = append(result.Errors, schemas.FixError{
			IssueID: issue.ID,
			Phase:   schemas.PhaseGeneration,
			Message: fmt.Sprintf("%s: module %s is circuit-broken", schemas.CodeCircuitOpen, info.ID),
		})
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		return
	}

	if !o.canFix(module, issue) {
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		return
	}

	if strategy == schemas.StrategyAIAssisted && o.aiLimiter != nil {
		if err := o.aiLimiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, schemas.FixError{
				IssueID: issue.ID,
				Phase:   schemas.PhaseGeneration,
				Message: fmt.Sprintf("%s: cancelled while rate-limited", schemas.CodeAborted),
			})
			result.UnfixableIssues = append(result.UnfixableIssues, issue)
			return
		}
	}

	fixCtx := &schemas.FixContext{
		ProjectRoot:     o.applier.Root(),
		Policy:          &o.cfg.Policy,
		Truthpack:       o.truth,
		ExistingPatches: *appliedThisRun,
	}

	patch, err := o.generateWithTimeout(ctx, module, issue, fixCtx)
	if err != nil {
		o.breakers.RecordFailure(info.ID)
		result.Errors = append(result.Errors, schemas.FixError{
			IssueID: issue.ID,
			Phase:   schemas.PhaseGeneration,
			Message: err.Error(),
		})
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		log.Warn("Fix generation failed.", zap.String("module_id", info.ID), zap.Error(err))
		return
	}
	if patch == nil {
		// The module declined; not a failure.
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		return
	}

	// The module's own validation gates scoring. An invalid patch makes the
	// issue unfixable without counting against the breaker.
	report := o.validatePatch(module, patch)
	if !report.Valid {
		log.Info("Module rejected its own patch.",
			zap.String("module_id", info.ID),
			zap.Strings("errors", report.Errors))
		result.UnfixableIssues = append(result.UnfixableIssues, issue)
		return
	}

	result.FixableIssues++

	fix := schemas.ProposedFix{
		ID:          uuid.New().String(),
		Issue:       issue,
		Patch:       *patch,
		Strategy:    strategy,
		Confidence:  scoreConfidence(issue, patch, strategy, info.Confidence, &o.cfg.Policy),
		ModuleID:    info.ID,
		Description: module.FixDescription(issue),
		Provenance:  issue.Provenance,
	}

	switch o.disposition(fix.Confidence, issue.Severity) {
	case schemas.RecommendAutoApply:
		o.dispatchApply(fix, result, appliedThisRun, log)
	case schemas.RecommendSuggest:
		result.SuggestedFixes = append(result.SuggestedFixes, fix)
	default:
		result.RejectedFixes = append(result.RejectedFixes, fix)
	}
}

// selectStrategy picks how a fix will be produced. Rule-based modules handle
// their declared types deterministically; AI-assisted modules are only
// eligible when the policy allows them; everything else is manual, meaning no
// automated fix is attempted.
func (o *Orchestrator) selectStrategy(issue schemas.Issue, module schemas.FixModule) schemas.FixStrategy {
	if module == nil {
		return schemas.StrategyManual
	}
	if module.Info().AIAssisted {
		if !o.cfg.Policy.AllowAIFixes {
			o.logger.Debug("AI-assisted module skipped by policy.",
				zap.String("issue_id", issue.ID),
				zap.String("module_id", module.Info().ID))
			return schemas.StrategyManual
		}
		return schemas.StrategyAIAssisted
	}
	return schemas.StrategyRuleBased
}

// generateWithTimeout invokes the module under the per-issue timeout. The
// module runs in its own goroutine so even one that ignores its context
// cannot stall the run; its eventual result is discarded after a timeout.
func (o *Orchestrator) generateWithTimeout(ctx context.Context, module schemas.FixModule, issue schemas.Issue, fixCtx *schemas.FixContext) (*schemas.Patch, error) {
	timeout := o.cfg.EffectiveIssueTimeout()
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		patch *schemas.Patch
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("module panicked: %v", r)}
			}
		}()
		patch, err := module.GenerateFix(genCtx, issue, fixCtx)
		done <- outcome{patch: patch, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			// A cooperative module may surface the deadline itself.
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: fix generation exceeded %s", schemas.CodeTimeout, timeout)
			}
			return nil, fmt.Errorf("generating fix: %w", out.err)
		}
		return out.patch, nil
	case <-genCtx.Done():
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: fix generation exceeded %s", schemas.CodeTimeout, timeout)
		}
		return nil, fmt.Errorf("%s: fix generation cancelled", schemas.CodeAborted)
	}
}

// canFix calls module.CanFix, converting a panic into a decline so a broken
// module cannot take down the run.
func (o *Orchestrator) canFix(module schemas.FixModule, issue schemas.Issue) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("CanFix panicked; treating the issue as unfixable.",
				zap.String("issue_id", issue.ID),
				zap.String("module_id", module.Info().ID),
				zap.Any("panic", r))
			ok = false
		}
	}()
	return module.CanFix(issue)
}

// validatePatch calls module.Validate, converting a panic into an invalid
// report so a broken validator cannot take down the run.
func (o *Orchestrator) validatePatch(module schemas.FixModule, patch *schemas.Patch) (report schemas.ValidationReport) {
	defer func() {
		if r := recover(); r != nil {
			report = schemas.ValidationReport{Valid: false, Errors: []string{fmt.Sprintf("validator panicked: %v", r)}}
		}
	}()
	return module.Validate(patch)
}

// disposition folds the policy's per-severity action over the advisory
// recommendation. Very low confidence always rejects; an explicit policy
// "suggest" or "reject" is binding; "auto_apply" is honored only above the
// confidence threshold and downgrades to suggest below it; anything else
// defers to the score's own recommendation.
func (o *Orchestrator) disposition(score schemas.ConfidenceScore, severity schemas.Severity) schemas.Recommendation {
	if score.Value < 0.3 {
		return schemas.RecommendReject
	}
	switch o.cfg.Policy.SeverityThresholds[severity] {
	case schemas.ActionSuggest:
		return schemas.RecommendSuggest
	case schemas.ActionReject:
		return schemas.RecommendReject
	case schemas.ActionAutoApply:
		if score.Value >= o.cfg.Policy.ConfidenceThreshold {
			return schemas.RecommendAutoApply
		}
		return schemas.RecommendSuggest
	default:
		return score.Recommendation
	}
}

// dispatchApply sends an auto-approved fix to the applier and records the
// module's success or failure for circuit-breaker accounting. In dry-run mode
// the applier validates without writing and the fix is still counted applied.
func (o *Orchestrator) dispatchApply(fix schemas.ProposedFix, result *schemas.FixResult, appliedThisRun *[]schemas.AppliedPatch, log *zap.Logger) {
	opts := applier.Options{Backup: true, DryRun: o.cfg.DryRun}
	applyResult := o.applier.Apply(&fix.Patch, opts)
	if !applyResult.Success {
		o.breakers.RecordFailure(fix.ModuleID)
		result.Errors = append(result.Errors, schemas.FixError{
			IssueID: fix.Issue.ID,
			Phase:   schemas.PhaseApplication,
			Message: applyResult.Error.Error(),
		})
		result.RejectedFixes = append(result.RejectedFixes, fix)
		log.Warn("Auto-apply failed.", zap.Error(applyResult.Error))
		return
	}

	o.breakers.RecordSuccess(fix.ModuleID)
	result.AppliedFixes = append(result.AppliedFixes, fix)

	if !o.cfg.DryRun {
		history := o.applier.History()
		if len(history) > 0 {
			*appliedThisRun = append(*appliedThisRun, history[len(history)-1])
		}
	}
	log.Info("Fix applied.",
		zap.String("path", applyResult.FilePath),
		zap.Float64("confidence", fix.Confidence.Value),
		zap.String("strategy", string(fix.Strategy)))
}

// mergeSameFileFixes collapses multiple applied fixes touching the same file
// into one entry per file, concatenating hunks in apply order. Best effort: a
// file whose fixes cannot be merged keeps its individual entries, and nothing
// already applied is ever invalidated here.
func (o *Orchestrator) mergeSameFileFixes(result *schemas.FixResult) {
	byFile := make(map[string][]int)
	for i, fix := range result.AppliedFixes {
		byFile[fix.Patch.FilePath] = append(byFile[fix.Patch.FilePath], i)
	}

	merged := make([]schemas.ProposedFix, 0, len(result.AppliedFixes))
	consumed := make(map[int]bool)
	for i, fix := range result.AppliedFixes {
		if consumed[i] {
			continue
		}
		indices := byFile[fix.Patch.FilePath]
		if len(indices) < 2 {
			merged = append(merged, fix)
			continue
		}

		combined, ok := o.mergeFixes(result.AppliedFixes, indices)
		if !ok {
			merged = append(merged, fix)
			continue
		}
		for _, idx := range indices {
			consumed[idx] = true
		}
		merged = append(merged, combined)
	}
	result.AppliedFixes = merged
}

// mergeFixes combines fixes at the given indices into one. The merge keeps
// the first fix's identity, the first pre-image, the last post-image, and the
// concatenated hunks. It declines when strategies differ, because a merged
// fix must not launder an AI-assisted change into a rule-based record.
func (o *Orchestrator) mergeFixes(fixes []schemas.ProposedFix, indices []int) (schemas.ProposedFix, bool) {
	first := fixes[indices[0]]
	combined := first

	for _, idx := range indices[1:] {
		next := fixes[idx]
		if next.Strategy != first.Strategy {
			o.logger.Debug("Skipping merge of mixed-strategy fixes.",
				zap.String("path", first.Patch.FilePath))
			return schemas.ProposedFix{}, false
		}
		combined.Patch.Hunks = append(combined.Patch.Hunks, next.Patch.Hunks...)
		combined.Patch.NewContent = next.Patch.NewContent
		combined.Description = combined.Description + "; " + next.Description
		if next.Confidence.Value < combined.Confidence.Value {
			combined.Confidence = next.Confidence
		}
	}

	o.logger.Info("Merged applied fixes for file.",
		zap.String("path", first.Patch.FilePath),
		zap.Int("count", len(indices)))
	return combined, true
}

// RunStats summarizes breaker state for operator diagnostics.
type RunStats struct {
	ModuleFailures map[string]int `json:"module_failures"`
	OpenBreakers   []string       `json:"open_breakers"`
}

// Stats reports the current circuit-breaker state for every registered module.
func (o *Orchestrator) Stats() RunStats {
	o.mu.Lock()
	modules := make(map[string]bool)
	for _, module := range o.registry {
		modules[module.Info().ID] = true
	}
	o.mu.Unlock()

	stats := RunStats{ModuleFailures: make(map[string]int)}
	for id := range modules {
		stats.ModuleFailures[id] = o.breakers.Failures(id)
		if o.breakers.Open(id) {
			stats.OpenBreakers = append(stats.OpenBreakers, id)
		}
	}
	return stats
}
