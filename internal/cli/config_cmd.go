package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/orphanscan/internal/app"
	"github.com/example/orphanscan/internal/config"
	"github.com/example/orphanscan/internal/wire"
)

const redacted = "********"

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect job settings",
	}
	cmd.AddCommand(configCheckCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate settings and print the effective values",
		Long: `Load the settings file with defaults and ORPHANSCAN_* overrides applied,
validate them, and print the result as YAML. Secrets are redacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := wire.Settings()
			if err := settings.Validate(); err != nil {
				return err
			}
			if _, err := app.ParseSchedule(settings.Schedule.Cron); err != nil {
				return fmt.Errorf("schedule.cron: %w", err)
			}

			out, err := yaml.Marshal(redactSettings(*settings))
			if err != nil {
				return fmt.Errorf("failed to render settings: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			fmt.Fprintln(cmd.OutOrStdout(), "✓ settings valid")
			return nil
		},
	}
}

// redactSettings returns a copy safe to print.
func redactSettings(s config.Settings) config.Settings {
	if s.Index.Password != "" {
		s.Index.Password = redacted
	}
	return s
}
