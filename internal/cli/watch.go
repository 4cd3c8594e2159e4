package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/orphanscan/internal/wire"
)

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	var (
		cronSpec   string
		runOnStart bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "watch <JIRA_USERNAME> <JIRA_PASSWORD>",
		Short: "Run reconciliation passes on a cron schedule",
		Long: `Run passes on a cron schedule until interrupted. A tick arriving while
a pass is still running is skipped, so passes never overlap.

The schedule defaults to schedule.cron from the settings file.

Examples:
  orphanscan watch svc-jira 's3cret'
  orphanscan watch svc-jira 's3cret' --cron '*/30 * * * *' --run-on-start`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := jiraArgs(args)
			if err := creds.Validate(); err != nil {
				return err
			}

			settings := wire.Settings()
			if !cmd.Flags().Changed("cron") {
				cronSpec = settings.Schedule.Cron
			}
			if !cmd.Flags().Changed("run-on-start") {
				runOnStart = settings.Schedule.RunOnStart
			}

			scheduler, err := wire.ScheduleService(creds, cronSpec, runOnStart, dryRun)
			if err != nil {
				return err
			}

			ctx, cancel := NewContext()
			defer cancel()
			return scheduler.Watch(ctx)
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "Cron expression or descriptor (e.g. @hourly)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run a pass immediately before the first tick")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Never write to the index")

	return cmd
}
