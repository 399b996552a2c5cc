package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/standards/internal/config"
	"github.com/harrison/standards/internal/display"
	"github.com/harrison/standards/internal/filelock"
	"github.com/harrison/standards/internal/history"
	"github.com/harrison/standards/internal/logger"
	"github.com/harrison/standards/internal/models"
	"github.com/harrison/standards/internal/report"
	"github.com/harrison/standards/internal/runner"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tool[,tool...]]...",
		Short: "Run the configured analysis tools",
		Long: `Run the configured static analysis tools in parallel.

With no arguments every configured tool runs. Arguments form a comma-delimited
whitelist; an unknown name aborts before any tool starts.

Configuration is loaded from .standards/config.yaml if present.
CLI flags override configuration file settings.

Exit status is 0 when every tool passed and 255 when any tool failed.

Examples:
  standards run                         # Run every configured tool
  standards run vet,staticcheck         # Run two tools
  standards run vet staticcheck         # Same, as separate arguments
  standards run --report report.md      # Also write a Markdown report
  standards run --report report.html    # ... or an HTML one
  standards run --verbose               # Log every launch and exit
  standards run --history               # Record the run in the history database`,
		RunE: runCommand,
	}

	cmd.Flags().Duration("poll-interval", 0, "Delay between sweeps over running tools (default from config, 100ms)")
	cmd.Flags().String("log-dir", "", "Directory for run logs (\"\" in config disables them)")
	cmd.Flags().Bool("history", false, "Record this run in the history database")
	cmd.Flags().String("report", "", "Write a run report to this file (.md or .html)")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(cmd)
	if err != nil {
		return err
	}
	cfg := proj.Config

	var pollPtr *time.Duration
	if cmd.Flags().Changed("poll-interval") {
		poll, _ := cmd.Flags().GetDuration("poll-interval")
		pollPtr = &poll
	}

	var logLevelPtr *string
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level := "debug"
		logLevelPtr = &level
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		logDir, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &logDir
	}

	var historyPtr *bool
	if cmd.Flags().Changed("history") {
		enabled, _ := cmd.Flags().GetBool("history")
		historyPtr = &enabled
	}

	cfg.MergeWithFlags(pollPtr, logLevelPtr, logDirPtr, historyPtr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath != "" {
		if _, err := report.FormatForPath(reportPath); err != nil {
			return err
		}
	}

	// Whitelist resolution happens before any process is spawned
	tools, err := cfg.SelectTools(strings.Join(args, ","))
	if err != nil {
		return err
	}

	colorAllowed := applyColorFlag(cmd)
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	if !proj.Found {
		display.WarnDefaultConfig(proj.ConfigPath).Display(stderr)
	}

	lock, err := filelock.AcquireRunLock(filepath.Join(proj.Dir, config.DirName))
	if err != nil {
		return err
	}
	defer lock.Release()

	runID := history.NewRunID()

	consoleLog := logger.NewConsoleLogger(stderr, cfg.LogLevel)
	loggers := []runner.Logger{consoleLog}

	var fileLog *logger.FileLogger
	if cfg.LogDir != "" {
		fileLog, err = logger.NewFileLogger(config.ResolvePath(proj.Dir, cfg.LogDir), fileLogLevel(cfg.LogLevel), runID)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		loggers = append(loggers, fileLog)
	}

	interactive, width := terminalOf(stdout)
	// Console log lines on the same terminal would break in-place redraws
	if interactive && logsToTerminal(stderr, cfg.LogLevel) {
		interactive = false
	}

	reporter := display.NewProgressReporter(stdout, display.ReporterOptions{
		Interactive: interactive,
		Width:       width,
		Color:       colorAllowed && interactive,
		Glyph:       cfg.ProgressGlyph,
	})

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	r := runner.New(runner.ProcessLauncher(wd), reporter, &multiLogger{loggers: loggers}, cfg.PollInterval)

	startedAt := time.Now()
	result, err := r.Run(tools)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	duration := time.Since(startedAt)

	if cfg.History.Enabled {
		if err := recordHistory(cmd.Context(), config.ResolvePath(proj.Dir, cfg.History.DBPath),
			history.NewRun(runID, proj.Dir, startedAt, duration, result)); err != nil {
			consoleLog.LogWarn(fmt.Sprintf("failed to record run history: %v", err))
		}
	}

	if reportPath != "" {
		meta := report.Meta{
			RunID:      runID,
			ProjectDir: proj.Dir,
			StartedAt:  startedAt,
			Duration:   duration,
		}
		if err := report.Write(reportPath, meta, result); err != nil {
			consoleLog.LogError(err.Error())
		} else {
			fmt.Fprintf(stdout, "Report written to: %s\n", reportPath)
		}
	}

	if fileLog != nil {
		consoleLog.LogInfo(fmt.Sprintf("Logs written to: %s", fileLog.RunFile()))
	}

	if !result.Passed() {
		// The reporter already printed which tools failed
		return &ExitError{Code: models.ExitFailure}
	}
	return nil
}

func recordHistory(ctx context.Context, dbPath string, run *history.Run) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(ctx, run)
}

// terminalOf reports whether w is an interactive terminal and its width
func terminalOf(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok {
		return false, 0
	}
	return display.DetectTerminal(f)
}

// logsToTerminal reports whether console log lines at level would appear
// on a terminal during the run. Tool events are logged at debug, the
// summary at info.
func logsToTerminal(w io.Writer, level string) bool {
	if logger.ParseLevel(level) > logger.LevelInfo {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// fileLogLevel keeps run logs at info or more verbose so every tool result
// is recorded even when the console only shows warnings
func fileLogLevel(level string) string {
	return min(logger.ParseLevel(level), logger.LevelInfo).String()
}

// multiLogger implements runner.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []runner.Logger
}

// LogRunStart forwards to all loggers
func (ml *multiLogger) LogRunStart(tools []models.Tool) {
	for _, l := range ml.loggers {
		l.LogRunStart(tools)
	}
}

// LogToolStart forwards to all loggers
func (ml *multiLogger) LogToolStart(tool models.Tool, pid int) {
	for _, l := range ml.loggers {
		l.LogToolStart(tool, pid)
	}
}

// LogToolComplete forwards to all loggers
func (ml *multiLogger) LogToolComplete(result models.ToolResult) {
	for _, l := range ml.loggers {
		l.LogToolComplete(result)
	}
}

// LogToolFail forwards to all loggers
func (ml *multiLogger) LogToolFail(result models.ToolResult) {
	for _, l := range ml.loggers {
		l.LogToolFail(result)
	}
}

// LogSummary forwards to all loggers
func (ml *multiLogger) LogSummary(result *models.RunResult) {
	for _, l := range ml.loggers {
		l.LogSummary(result)
	}
}
