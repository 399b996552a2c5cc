package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for standards
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standards",
		Short: "Run static analysis tools in parallel",
		Long: `Standards runs a project's static analysis tools concurrently and reports
a single verdict.

Every selected tool is launched at once. A shared progress bar advances as
each tool exits; tools that fail have their output shown, tools that pass
disappear. The process exits 0 when every tool passed and 255 otherwise.

Tools are configured in .standards/config.yaml.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints errors so tool failures (already reported) stay quiet
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .standards/config.yaml)")
	cmd.PersistentFlags().Bool("verbose", false, "Log tool launches and exits (debug level)")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
