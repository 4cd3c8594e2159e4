package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/orphanscan/internal/cli"
	"github.com/example/orphanscan/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "orphanscan",
		Short:   "orphanscan - flag Tracker A tickets with no live Tracker B counterpart",
		Version: version.String(),
		Long: `orphanscan reconciles open tickets in Tracker A (ATR) against Tracker B
(JIRA) per ticket category and marks the orphans in the reporting index.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.Bootstrap,
	}
	cli.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.RunsCmd())
	rootCmd.AddCommand(cli.ConfigCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	err := rootCmd.Execute()
	cli.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
