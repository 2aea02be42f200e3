// File: cmd/fix.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/autofix"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/modules"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	fixDryRun      bool
	fixOutFile     string
	fixProjectRoot string
)

// newFixCmd creates the fix command, the main entry point of the engine.
func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix <issues.json> [more-issues.json ...]",
		Short: "Process issue reports and apply or suggest fixes per policy.",
		Long: `Reads one or more JSON issue reports produced by upstream detectors and
runs the fix pipeline over them. Fixes are auto-applied, suggested for
review, or rejected according to the configured policy and each fix's
confidence score.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig
			if fixDryRun {
				cfg.Autofix.DryRun = true
			}
			if fixProjectRoot != "" {
				cfg.Autofix.ProjectRoot = fixProjectRoot
			}
			return runFix(cmd.Context(), cfg, observability.GetLogger(), args, fixOutFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Validate and score fixes without writing anything.")
	cmd.Flags().StringVarP(&fixOutFile, "out", "o", "", "Write the full run result as JSON to this file.")
	cmd.Flags().StringVar(&fixProjectRoot, "project-root", "", "Override the configured project root for this run.")
	return cmd
}

// runFix contains the testable business logic for the fix command.
func runFix(ctx context.Context, cfg *config.Config, logger *zap.Logger, issueFiles []string, outFile string, stdout io.Writer) error {
	issues, err := loadIssueFiles(ctx, issueFiles)
	if err != nil {
		return err
	}
	logger.Info("Loaded issue reports.", zap.Int("files", len(issueFiles)), zap.Int("issues", len(issues)))

	orch, err := autofix.NewOrchestrator(cfg.Autofix, logger)
	if err != nil {
		return fmt.Errorf("initializing orchestrator: %w", err)
	}
	orch.RegisterModule(modules.NewSuggestionModule(logger))

	result, err := orch.ProcessIssues(ctx, issues)
	if err != nil {
		return fmt.Errorf("fix run failed: %w", err)
	}

	if outFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding run result: %w", err)
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return fmt.Errorf("writing run result: %w", err)
		}
	}

	fmt.Fprintf(stdout, "Issues:    %d total, %d fixable\n", result.TotalIssues, result.FixableIssues)
	fmt.Fprintf(stdout, "Applied:   %d\n", len(result.AppliedFixes))
	fmt.Fprintf(stdout, "Suggested: %d\n", len(result.SuggestedFixes))
	fmt.Fprintf(stdout, "Rejected:  %d\n", len(result.RejectedFixes))
	fmt.Fprintf(stdout, "Unfixable: %d\n", len(result.UnfixableIssues))
	if len(result.Errors) > 0 {
		fmt.Fprintf(stdout, "Errors:    %d\n", len(result.Errors))
		for _, fixErr := range result.Errors {
			fmt.Fprintf(stdout, "  [%s] %s: %s\n", fixErr.Phase, fixErr.IssueID, fixErr.Message)
		}
	}
	for _, fix := range result.SuggestedFixes {
		fmt.Fprintf(stdout, "suggest %s: %s (confidence %.2f)\n", fix.Patch.FilePath, fix.Description, fix.Confidence.Value)
	}
	return nil
}

// loadIssueFiles reads and decodes every report concurrently, preserving the
// input order across files so earlier reports are processed first.
func loadIssueFiles(ctx context.Context, paths []string) ([]schemas.Issue, error) {
	perFile := make([][]schemas.Issue, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			var issues []schemas.Issue
			if err := json.Unmarshal(data, &issues); err != nil {
				return fmt.Errorf("decoding %s: %w", path, err)
			}
			perFile[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []schemas.Issue
	for _, issues := range perFile {
		all = append(all, issues...)
	}
	return all, nil
}
