// Package runner supervises a set of analysis tools running as concurrent
// child processes and aggregates their exit codes.
//
// A single goroutine drives the supervision: every tool is launched up front,
// then the runner sweeps the pending handles on a fixed interval, recording
// each completion it observes. The OS provides all the parallelism.
package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/harrison/standards/internal/models"
	"github.com/harrison/standards/internal/process"
)

// DefaultPollInterval is the delay between sweeps over still-running tools.
const DefaultPollInterval = 100 * time.Millisecond

// ErrNoTools is returned when Run is called with an empty tool set.
var ErrNoTools = errors.New("no tools to run")

// Handle is the view of a child process the runner needs.
// *process.Handle satisfies it.
type Handle interface {
	Tool() models.Tool
	Start() error
	IsRunning() bool
	Output() string
	ExitCode() (int, bool)
	Pid() int
}

// Launcher creates an unstarted handle for a tool
type Launcher func(tool models.Tool) Handle

// ProcessLauncher returns a Launcher producing OS child processes that run in dir
func ProcessLauncher(dir string) Launcher {
	return func(tool models.Tool) Handle {
		return process.New(tool, dir)
	}
}

// Reporter renders run progress. Calls are made from the supervising
// goroutine only, in the order Begin, ToolFinished (once per tool), End.
type Reporter interface {
	Begin(tools []models.Tool)
	ToolFinished(result models.ToolResult)
	End(result *models.RunResult)
}

// Logger records supervisory events
type Logger interface {
	LogRunStart(tools []models.Tool)
	LogToolStart(tool models.Tool, pid int)
	LogToolComplete(result models.ToolResult)
	LogToolFail(result models.ToolResult)
	LogSummary(result *models.RunResult)
}

// Runner starts tools concurrently and polls them to completion
type Runner struct {
	launch   Launcher
	reporter Reporter
	logger   Logger
	interval time.Duration

	// sleep and now are replaced in tests
	sleep func(time.Duration)
	now   func() time.Time
}

// New creates a Runner. A nil reporter or logger discards events; a
// non-positive interval falls back to DefaultPollInterval.
func New(launch Launcher, reporter Reporter, logger Logger, interval time.Duration) *Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Runner{
		launch:   launch,
		reporter: reporter,
		logger:   logger,
		interval: interval,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Interval returns the sweep interval
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// pending tracks a launched tool that has not been observed to finish
type pending struct {
	handle    Handle
	startedAt time.Time
}

// Run launches every tool before polling any of them, then sweeps until all
// have terminated. The returned RunResult holds exactly one exit code per
// tool. Tools that fail to launch are recorded as failed with
// models.ExitCodeLaunchFailed and do not affect the others. There is no
// cancellation: a tool that never exits blocks Run forever.
func (r *Runner) Run(tools []models.Tool) (*models.RunResult, error) {
	if len(tools) == 0 {
		return nil, ErrNoTools
	}

	states := make(map[string]models.ToolStatus, len(tools))
	for _, tool := range tools {
		if _, dup := states[tool.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", tool.Name)
		}
		states[tool.Name] = models.StatusPending
	}

	result := models.NewRunResult(tools)
	r.logger.LogRunStart(tools)

	running := make([]pending, 0, len(tools))
	var launchFailures []models.ToolResult

	for _, tool := range tools {
		h := r.launch(tool)
		startedAt := r.now()
		if err := h.Start(); err != nil {
			launchFailures = append(launchFailures, models.ToolResult{
				Tool:      tool,
				Status:    models.StatusFailed,
				ExitCode:  models.ExitCodeLaunchFailed,
				Output:    err.Error() + "\n",
				Err:       err,
				StartedAt: startedAt,
			})
			continue
		}
		states[tool.Name] = models.StatusRunning
		r.logger.LogToolStart(tool, h.Pid())
		running = append(running, pending{handle: h, startedAt: startedAt})
	}

	r.reporter.Begin(tools)

	for _, failure := range launchFailures {
		if err := r.finish(result, states, failure); err != nil {
			return result, err
		}
	}

	for {
		var completed []pending
		completed, running = sweep(running)

		for _, p := range completed {
			if err := r.finish(result, states, r.collect(p)); err != nil {
				return result, err
			}
		}

		if len(running) == 0 {
			break
		}

		r.sleep(r.interval)
	}

	r.reporter.End(result)
	r.logger.LogSummary(result)

	return result, nil
}

// sweep partitions a snapshot of handles into those that have terminated and
// those still running. The input slice is not modified.
func sweep(snapshot []pending) (completed, still []pending) {
	for _, p := range snapshot {
		if p.handle.IsRunning() {
			still = append(still, p)
			continue
		}
		completed = append(completed, p)
	}
	return completed, still
}

// collect builds the terminal result for a handle observed as not running
func (r *Runner) collect(p pending) models.ToolResult {
	code, ok := p.handle.ExitCode()
	if !ok {
		// Terminated without a readable status; treat as abnormal exit.
		code = -1
	}
	return models.ToolResult{
		Tool:      p.handle.Tool(),
		Status:    models.StatusForExitCode(code),
		ExitCode:  code,
		Output:    p.handle.Output(),
		StartedAt: p.startedAt,
		Duration:  r.now().Sub(p.startedAt),
	}
}

// finish records a terminal result and notifies the reporter and logger
func (r *Runner) finish(result *models.RunResult, states map[string]models.ToolStatus, res models.ToolResult) error {
	name := res.Tool.Name
	if !states[name].CanTransition(res.Status) {
		return fmt.Errorf("tool %q: illegal transition %s -> %s", name, states[name], res.Status)
	}
	states[name] = res.Status

	if err := result.Record(res); err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	if res.Passed() {
		r.logger.LogToolComplete(res)
	} else {
		r.logger.LogToolFail(res)
	}
	r.reporter.ToolFinished(res)
	return nil
}

type nopReporter struct{}

func (nopReporter) Begin([]models.Tool)            {}
func (nopReporter) ToolFinished(models.ToolResult) {}
func (nopReporter) End(*models.RunResult)          {}

type nopLogger struct{}

func (nopLogger) LogRunStart([]models.Tool)         {}
func (nopLogger) LogToolStart(models.Tool, int)     {}
func (nopLogger) LogToolComplete(models.ToolResult) {}
func (nopLogger) LogToolFail(models.ToolResult)     {}
func (nopLogger) LogSummary(*models.RunResult)      {}
