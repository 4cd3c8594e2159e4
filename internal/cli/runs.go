package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/orphanscan/internal/wire"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect run history",
	Long:  "List, inspect and prune the recorded reconciliation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := NewContext()
		defer cancel()
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		adapter, err := wire.RunAdapterWithOutput(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return adapter.List(ctx, status, limit)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a run with its category outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := NewContext()
		defer cancel()
		marks, _ := cmd.Flags().GetBool("marks")

		adapter, err := wire.RunAdapterWithOutput(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = adapter.Show(ctx, args[0], marks)
		return err
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs",
	Long:  "Delete runs older than the specified number of days (default 30)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := NewContext()
		defer cancel()
		days, _ := cmd.Flags().GetInt("days")

		if days <= 0 {
			days = 30
		}

		adapter, err := wire.RunAdapterWithOutput(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return adapter.Prune(ctx, days)
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "Filter by status (running, success, failure)")
	runsListCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs")

	runsShowCmd.Flags().Bool("marks", false, "Also list every marking attempt")

	runsPruneCmd.Flags().Int("days", 30, "Delete runs older than this many days")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPruneCmd)
}

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	return runsCmd
}
