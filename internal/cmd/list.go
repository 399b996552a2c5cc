package cmd

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/standards/internal/display"
	"github.com/harrison/standards/internal/models"
)

// lookPath is swapped in tests
var lookPath = exec.LookPath

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured analysis tools",
		Long: `List the tools standards runs, in run order, with their command lines.

The names shown are the ones accepted by "standards run <tool,...>".
Tools whose binary cannot be found on PATH are flagged.`,
		Args: cobra.NoArgs,
		RunE: listCommand,
	}
}

func listCommand(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := proj.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyColorFlag(cmd)

	source := proj.ConfigPath
	if !proj.Found {
		source = "built-in defaults"
	}

	missing := displayTools(cmd.OutOrStdout(), proj.Config.AllTools(), source)
	if len(missing) > 0 {
		display.WarnMissingBinaries(missing).Display(cmd.ErrOrStderr())
	}
	return nil
}

// displayTools prints the tool table and returns the names of tools whose
// executable is not on PATH
func displayTools(w io.Writer, tools []models.Tool, source string) []string {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Configured tools (%s) ===\n\n", source)

	width := 0
	for _, t := range tools {
		if len(t.Name) > width {
			width = len(t.Name)
		}
	}

	var missing []string
	for _, t := range tools {
		fmt.Fprintf(w, "  %-*s  %s  ", width, t.Name, t.CommandLine())
		if _, err := lookPath(t.Executable()); err != nil {
			red.Fprintf(w, "(not found)\n")
			missing = append(missing, t.Name)
			continue
		}
		green.Fprintf(w, "(ok)\n")
	}

	return missing
}
