// File: cmd/history.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/remedy-cli/internal/autofix/applier"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
)

// newHistoryCmd creates the history command, which prints the transaction log.
func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the recorded fix transactions, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txlog := applier.NewTransactionLog(appConfig.Autofix.TransactionLog, observability.GetLogger())
			entries := txlog.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions recorded.")
				return nil
			}

			for _, entry := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-11s  %d fix(es)",
					entry.Timestamp.Format("2006-01-02 15:04:05"),
					entry.Status,
					len(entry.Fixes))
				if entry.CommitHash != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  commit %.12s", entry.CommitHash)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", entry.ID)
				for _, fix := range entry.Fixes {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", fix.FilePath)
				}
			}
			return nil
		},
	}
}
