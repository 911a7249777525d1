package commands

import (
	"github.com/spf13/cobra"
)

var (
	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "sentinelctl",
	Short: "Sentinel actor/supervision runtime command center CLI",
	Long: `sentinelctl drives the sentinel actor runtime from the command line.

It does not talk to a running daemon over any wire protocol — remote
transport is outside this module's scope — instead each subcommand builds
its own in-process supervision tree and reports what happened.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
}
