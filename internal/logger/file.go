package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/standards/internal/models"
)

// unsafeFileChars matches characters not allowed in per-tool log names
var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileLogger logs run events to files in the .standards/logs/ directory.
// It creates a per-run log file, one output log per tool in the tools/
// subdirectory, and maintains a latest.log symlink pointing to the most
// recent run. It is thread-safe and implements the runner.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	toolsDir string
	runID    string
	level    Level
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing under logDir for the run
// identified by runID. It creates the directory if needed, opens
// run-YYYYMMDD-HHMMSS-<id>.log and points latest.log at it.
func NewFileLogger(logDir, logLevel, runID string) (*FileLogger, error) {
	toolsDir := filepath.Join(logDir, "tools")
	if err := os.MkdirAll(toolsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	suffix := runID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s-%s.log", timestamp, suffix))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		toolsDir: toolsDir,
		runID:    runID,
		level:    ParseLevel(logLevel),
	}

	logger.writeRunLog("=== Standards Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Run ID: %s\n", runID))
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of this run's log file
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// ToolLogPath returns the output log path for a tool. Names that had to be
// rewritten carry a "~" and a digest of the original name, so "a/b" and
// "a_b" never share a file.
func (fl *FileLogger) ToolLogPath(name string) string {
	safe := unsafeFileChars.ReplaceAllString(name, "_")
	if safe != name {
		digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()[:8]
		safe += "~" + digest
	}
	return filepath.Join(fl.toolsDir, safe+".log")
}

// Enabled reports whether records at level are written to the run log
func (fl *FileLogger) Enabled(level Level) bool {
	return level >= fl.level
}

// Log writes message to the run log as a tagged record
func (fl *FileLogger) Log(level Level, message string) {
	if !fl.Enabled(level) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format(clockLayout), level.tag(), message))
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.Log(LevelInfo, message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.Log(LevelWarn, message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.Log(LevelError, message)
}

// LogRunStart records the selected tools and their command lines at INFO level.
func (fl *FileLogger) LogRunStart(tools []models.Tool) {
	if !fl.Enabled(LevelInfo) {
		return
	}

	ts := time.Now().Format(clockLayout)
	message := fmt.Sprintf("[%s] Starting %d tool(s)\n", ts, len(tools))
	for _, t := range tools {
		message += fmt.Sprintf("[%s]   - %s: %s\n", ts, t.Name, t.CommandLine())
	}
	fl.writeRunLog(message)
}

// LogToolStart records a launched child process at DEBUG level.
func (fl *FileLogger) LogToolStart(tool models.Tool, pid int) {
	if !fl.Enabled(LevelDebug) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Launched %s (pid %d)\n", time.Now().Format(clockLayout), tool.Name, pid))
}

// LogToolComplete records a passing tool and writes its output log.
func (fl *FileLogger) LogToolComplete(result models.ToolResult) {
	fl.logToolResult(result)
}

// LogToolFail records a failing tool and writes its output log.
func (fl *FileLogger) LogToolFail(result models.ToolResult) {
	fl.logToolResult(result)
}

func (fl *FileLogger) logToolResult(result models.ToolResult) {
	if fl.Enabled(LevelInfo) {
		fl.writeRunLog(fmt.Sprintf("[%s] %s: %s (exit code %d, %.1fs)\n",
			time.Now().Format(clockLayout),
			result.Tool.Name,
			result.Status,
			result.ExitCode,
			result.Duration.Seconds(),
		))
	}

	if err := fl.LogToolOutput(result); err != nil {
		fl.LogError(err.Error())
	}
}

// LogToolOutput writes the full captured output of a tool to tools/<name>.log.
func (fl *FileLogger) LogToolOutput(result models.ToolResult) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	file, err := os.OpenFile(fl.ToolLogPath(result.Tool.Name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create tool log file: %w", err)
	}
	defer file.Close()

	content := fmt.Sprintf("=== %s ===\n", result.Tool.Name)
	content += fmt.Sprintf("Run ID: %s\n", fl.runID)
	content += fmt.Sprintf("Command: %s\n", result.Tool.CommandLine())
	content += fmt.Sprintf("Status: %s\n", result.Status)
	content += fmt.Sprintf("Exit Code: %d\n", result.ExitCode)
	content += fmt.Sprintf("Duration: %.1fs\n", result.Duration.Seconds())
	content += "\n"

	if result.Err != nil {
		content += fmt.Sprintf("Error:\n%v\n\n", result.Err)
	}
	if result.Output != "" {
		content += fmt.Sprintf("Output:\n%s\n", strings.TrimRight(result.Output, "\n"))
	}

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to write tool log: %w", err)
	}
	return nil
}

// LogSummary records the run summary at INFO level.
func (fl *FileLogger) LogSummary(result *models.RunResult) {
	if !fl.Enabled(LevelInfo) {
		return
	}

	timestamp := time.Now().Format(clockLayout)
	failed := result.Failed()

	status := "SUCCESS"
	if len(failed) > 0 {
		status = "FAILED"
	}

	message := fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Total tools:  %d\n"+
			"[%s] Passed:       %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Status:       %s (exit %d)\n",
		timestamp,
		timestamp, result.Len(),
		timestamp, len(result.Succeeded()),
		timestamp, len(failed),
		timestamp, status, result.ExitStatus(),
	)
	for _, res := range failed {
		message += fmt.Sprintf("[%s]   - %s: exit code %d (see %s)\n", timestamp, res.Tool.Name, res.ExitCode, fl.ToolLogPath(res.Tool.Name))
	}
	message += fmt.Sprintf("[%s] Completed at: %s\n", timestamp, time.Now().Format(time.RFC3339))

	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
// It should be called when the logger is no longer needed.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
