package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/standards/internal/config"
	"github.com/harrison/standards/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded standards runs",
		Long: `Show the most recent runs recorded in the history database, newest first,
with the tools that passed and failed in each. Given a run id, or the short
id from the listing, show that run's tools with their recorded output.

Runs are recorded when history.enabled is true in .standards/config.yaml
or when "standards run --history" is used.

Examples:
  standards history                 # Last 10 runs
  standards history --limit 50      # Last 50 runs
  standards history --stats         # Failure rate per tool
  standards history --prune-days 30 # Delete runs older than 30 days
  standards history 3f2a9c1e        # One run in detail`,
		Args: cobra.MaximumNArgs(1),
		RunE: historyCommand,
	}

	cmd.Flags().Int("limit", 10, "Number of runs to show (0 = all)")
	cmd.Flags().Bool("stats", false, "Show per-tool statistics instead of runs")
	cmd.Flags().Int("prune-days", 0, "Delete runs older than this many days before listing")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd)
	if err != nil {
		return err
	}
	applyColorFlag(cmd)

	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return exitError(1, "--limit must be >= 0, got %d", limit)
	}
	showStats, _ := cmd.Flags().GetBool("stats")
	pruneDays, _ := cmd.Flags().GetInt("prune-days")

	out := cmd.OutOrStdout()
	dbPath := config.ResolvePath(proj.Dir, proj.Config.History.DBPath)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No run history found.\n")
		fmt.Fprintf(out, "Database path: %s\n", dbPath)
		fmt.Fprintf(out, "Enable history.enabled in %s or pass --history to run.\n", config.ConfigPath(proj.Dir))
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	if pruneDays > 0 {
		deleted, err := store.CleanupOldRuns(ctx, pruneDays)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Fprintf(out, "Pruned %d run(s) older than %d day(s).\n\n", deleted, pruneDays)
	}

	if len(args) == 1 {
		id, err := store.ResolveRunID(ctx, args[0])
		if err != nil {
			return err
		}
		var run *history.Run
		if id != "" {
			if run, err = store.GetRun(ctx, id); err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}
		}
		if run == nil {
			return exitError(1, "no recorded run matches %q", args[0])
		}
		displayRun(out, run)
		return nil
	}

	if showStats {
		stats, err := store.GetToolStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tool statistics: %w", err)
		}
		displayToolStats(out, stats)
		return nil
	}

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	displayRuns(out, runs)
	return nil
}

func displayRuns(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded yet.\n")
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Recent runs (%d) ===\n\n", len(runs))

	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s  %s  ", run.StartedAt.Local().Format("2006-01-02 15:04:05"), id)
		if run.Passed() {
			green.Fprintf(w, "PASS")
		} else {
			red.Fprintf(w, "FAIL")
		}
		fmt.Fprintf(w, "  %v\n", run.Duration.Round(time.Millisecond))

		var passed, failed []string
		for _, tr := range run.Tools {
			if tr.ExitCode == 0 {
				passed = append(passed, tr.Name)
			} else {
				failed = append(failed, fmt.Sprintf("%s (%d)", tr.Name, tr.ExitCode))
			}
		}
		if len(passed) > 0 {
			fmt.Fprintf(w, "    passed: %s\n", strings.Join(passed, ", "))
		}
		if len(failed) > 0 {
			fmt.Fprintf(w, "    failed: %s\n", strings.Join(failed, ", "))
		}
	}
}

func displayRun(w io.Writer, run *history.Run) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Run %s ===\n\n", run.ID)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Project:  %s\n", run.ProjectDir)
	fmt.Fprintf(w, "Duration: %v\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Status:   ")
	if run.Passed() {
		green.Fprintf(w, "PASS")
	} else {
		red.Fprintf(w, "FAIL")
	}
	fmt.Fprintf(w, " (exit %d, %d of %d tool(s) failed)\n", run.ExitStatus, run.FailedCount, run.ToolCount)

	for _, tr := range run.Tools {
		fmt.Fprintf(w, "\n  %s: ", tr.Name)
		if tr.ExitCode == 0 {
			green.Fprintf(w, "passed")
		} else {
			red.Fprintf(w, "failed with exit code %d", tr.ExitCode)
		}
		fmt.Fprintf(w, " (%v)\n", tr.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "    Command: %s\n", tr.CommandLine)
		if tr.ErrorMessage != "" {
			fmt.Fprintf(w, "    Error: %s\n", tr.ErrorMessage)
		}
		if tr.ExitCode != 0 && tr.Output != "" {
			fmt.Fprintf(w, "    Output:\n")
			for _, line := range strings.Split(strings.TrimRight(tr.Output, "\n"), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
}

func displayToolStats(w io.Writer, stats []history.ToolStats) {
	if len(stats) == 0 {
		fmt.Fprintf(w, "No tool results recorded yet.\n")
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Tool statistics ===\n\n")

	for _, ts := range stats {
		fmt.Fprintf(w, "  %s:\n", ts.Name)
		fmt.Fprintf(w, "    Runs: %d\n", ts.Runs)
		fmt.Fprintf(w, "    Failure rate: ")
		rate := ts.FailureRate() * 100
		switch {
		case rate == 0:
			green.Fprintf(w, "%.1f%%", rate)
		case rate < 50:
			yellow.Fprintf(w, "%.1f%%", rate)
		default:
			red.Fprintf(w, "%.1f%%", rate)
		}
		fmt.Fprintf(w, " (%d/%d)\n", ts.Failures, ts.Runs)
		fmt.Fprintf(w, "    Last exit code: %d\n", ts.LastExitCode)
		fmt.Fprintf(w, "    Avg duration: %v\n", ts.AvgDuration.Round(time.Millisecond))
	}
}
