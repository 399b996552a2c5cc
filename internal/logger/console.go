// Package logger provides logging implementations for standards runs.
//
// The logger package records supervisory events (tool launches, completions
// and the run summary). Implementations are thread-safe and support console
// and file destinations.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/standards/internal/models"
)

// clockLayout prefixes every console and run log line
const clockLayout = "15:04:05"

// ConsoleLogger writes run events as "[HH:MM:SS] ..." lines. Tool events are
// debug records, the run summary is an info record, and free-form messages
// carry their level tag. Levels are colored when writing to a color-capable
// os.Stdout or os.Stderr.
type ConsoleLogger struct {
	w     io.Writer
	level Level
	color bool
	mu    sync.Mutex
}

// NewConsoleLogger creates a ConsoleLogger that writes to w, dropping records
// below level (see ParseLevel). A nil writer discards everything.
func NewConsoleLogger(w io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		w:     w,
		level: ParseLevel(level),
		color: colorWriter(w),
	}
}

// colorWriter reports whether w is a standard stream color output is allowed on
func colorWriter(w io.Writer) bool {
	if w == nil {
		return false
	}
	return (w == os.Stdout || w == os.Stderr) && !color.NoColor
}

// Level returns the minimum level written
func (cl *ConsoleLogger) Level() Level {
	return cl.level
}

// Enabled reports whether records at level reach the writer
func (cl *ConsoleLogger) Enabled(level Level) bool {
	return cl.w != nil && level >= cl.level
}

// Log writes message as a tagged record: "[HH:MM:SS] [LEVEL] message"
func (cl *ConsoleLogger) Log(level Level, message string) {
	if !cl.Enabled(level) {
		return
	}
	cl.emit("["+cl.paint(level.color(), level.tag())+"] ", message)
}

// LogInfo logs an info-level message
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.Log(LevelInfo, message)
}

// LogWarn logs a warning
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.Log(LevelWarn, message)
}

// LogError logs an error
func (cl *ConsoleLogger) LogError(message string) {
	cl.Log(LevelError, message)
}

// LogRunStart logs the tool set about to be launched.
// Format: "[HH:MM:SS] Starting <n> tool(s): a, b, c"
func (cl *ConsoleLogger) LogRunStart(tools []models.Tool) {
	if !cl.Enabled(LevelDebug) {
		return
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	cl.emit("", fmt.Sprintf("Starting %d tool(s): %s", len(tools), strings.Join(names, ", ")))
}

// LogToolStart logs a launched child process.
// Format: "[HH:MM:SS] Launched <name> (pid <pid>): <command line>"
func (cl *ConsoleLogger) LogToolStart(tool models.Tool, pid int) {
	if !cl.Enabled(LevelDebug) {
		return
	}
	name := cl.paint(color.New(color.Bold), tool.Name)
	cl.emit("", fmt.Sprintf("Launched %s (pid %d): %s", name, pid, tool.CommandLine()))
}

// LogToolComplete logs a tool that exited 0.
// Format: "[HH:MM:SS] <name>: passed (<duration>)"
func (cl *ConsoleLogger) LogToolComplete(result models.ToolResult) {
	if !cl.Enabled(LevelDebug) {
		return
	}
	status := cl.paint(color.New(color.FgGreen), "passed")
	cl.emit("", fmt.Sprintf("%s: %s (%s)", result.Tool.Name, status, formatDuration(result.Duration)))
}

// LogToolFail logs a failed tool, including the launch error when the tool
// never started.
// Format: "[HH:MM:SS] <name>: failed with exit code <code> (<duration>)"
func (cl *ConsoleLogger) LogToolFail(result models.ToolResult) {
	if !cl.Enabled(LevelDebug) {
		return
	}
	status := cl.paint(color.New(color.FgRed), fmt.Sprintf("failed with exit code %d", result.ExitCode))
	message := fmt.Sprintf("%s: %s (%s)", result.Tool.Name, status, formatDuration(result.Duration))
	if result.Err != nil {
		message += fmt.Sprintf(": %v", result.Err)
	}
	cl.emit("", message)
}

// LogSummary logs totals and the failed tools at INFO level
func (cl *ConsoleLogger) LogSummary(result *models.RunResult) {
	if !cl.Enabled(LevelInfo) {
		return
	}

	failed := result.Failed()
	failedText := fmt.Sprintf("Failed: %d", len(failed))
	if len(failed) > 0 {
		failedText = cl.paint(color.New(color.FgRed), failedText)
	}

	lines := []string{
		cl.paint(color.New(color.Bold), "=== Run Summary ==="),
		fmt.Sprintf("Total tools: %d", result.Len()),
		cl.paint(color.New(color.FgGreen), fmt.Sprintf("Passed: %d", len(result.Succeeded()))),
		failedText,
	}
	for _, res := range failed {
		lines = append(lines, fmt.Sprintf("  - %s: exit code %d", res.Tool.Name, res.ExitCode))
	}
	cl.emit("", lines...)
}

// emit writes each line stamped with the current time and prefix, as one
// write so concurrent records never interleave
func (cl *ConsoleLogger) emit(prefix string, lines ...string) {
	stamp := "[" + time.Now().Format(clockLayout) + "] " + prefix

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(stamp)
		b.WriteString(line)
		b.WriteByte('\n')
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	io.WriteString(cl.w, b.String())
}

func (cl *ConsoleLogger) paint(c *color.Color, s string) string {
	if !cl.color {
		return s
	}
	return c.Sprint(s)
}

// formatDuration renders d as "250ms" below one second, otherwise in whole
// seconds with trailing zero units dropped: "5s", "1m30s", "2m", "3h".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := d.Truncate(time.Second).String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
