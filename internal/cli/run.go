package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/orphanscan/internal/app"
	"github.com/example/orphanscan/internal/wire"
)

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <JIRA_USERNAME> <JIRA_PASSWORD>",
		Short: "Run one reconciliation pass",
		Long: `Reconcile open Tracker A tickets against Tracker B and flag orphans
in the search index.

Exits 1 when credentials are missing, when bootstrap fails, or when any
category fails or epic resolution fails while required.

Examples:
  orphanscan run svc-jira 's3cret'
  orphanscan run svc-jira 's3cret' --dry-run`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := jiraArgs(args)
			if err := creds.Validate(); err != nil {
				return err
			}

			ctx, cancel := NewContext()
			defer cancel()

			adapter, err := wire.ReconcileAdapterWithOutput(ctx, creds, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			result, err := adapter.Run(ctx, dryRun)
			if err != nil {
				if app.IsRunInterrupted(err) {
					fmt.Fprintln(os.Stderr, "interrupted")
				}
				return err
			}
			if result.Failed() {
				return fmt.Errorf("%w: run %s", ErrRunFailed, result.RunID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute orphans and log what would be marked without writing to the index")

	return cmd
}
