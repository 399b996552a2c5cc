package models

import (
	"fmt"
	"time"
)

// ToolStatus is the lifecycle state of a single tool within a run
type ToolStatus string

// Tool status constants
const (
	StatusPending   ToolStatus = "PENDING"   // Not started yet
	StatusRunning   ToolStatus = "RUNNING"   // Child process launched
	StatusSucceeded ToolStatus = "SUCCEEDED" // Exited with code 0
	StatusFailed    ToolStatus = "FAILED"    // Exited non-zero or could not be launched
)

// Exit codes propagated to the caller of a run
const (
	ExitSuccess = 0
	ExitFailure = 255
)

// ExitCodeLaunchFailed is recorded for tools whose binary could not be started
const ExitCodeLaunchFailed = 127

// IsTerminal returns true for Succeeded and Failed
func (s ToolStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal transition
// of Pending -> Running -> {Succeeded, Failed}
func (s ToolStatus) CanTransition(next ToolStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// StatusForExitCode maps an exit code to its terminal status
func StatusForExitCode(code int) ToolStatus {
	if code == 0 {
		return StatusSucceeded
	}
	return StatusFailed
}

// ToolResult represents the outcome of running a single tool
type ToolResult struct {
	Tool      Tool          // The tool that was executed
	Status    ToolStatus    // Terminal status
	ExitCode  int           // Process exit code (ExitCodeLaunchFailed if it never started)
	Output    string        // Interleaved stdout/stderr
	Err       error         // Launch error, nil when the process ran
	StartedAt time.Time     // When the child was launched
	Duration  time.Duration // Time from launch to the sweep that observed completion
}

// Passed returns true when the tool exited with code 0
func (r ToolResult) Passed() bool {
	return r.ExitCode == 0
}

// RunResult maps tool name to exit code, iterating in start order.
// It is built incrementally as each tool completes and is not safe for
// concurrent use; the supervising loop owns it.
type RunResult struct {
	order   []string
	results map[string]ToolResult
}

// NewRunResult creates an empty RunResult that will accept results for the
// given tools. Iteration order follows the order of tools.
func NewRunResult(tools []Tool) *RunResult {
	order := make([]string, 0, len(tools))
	for _, t := range tools {
		order = append(order, t.Name)
	}
	return &RunResult{
		order:   order,
		results: make(map[string]ToolResult, len(tools)),
	}
}

// Record stores the terminal result of a tool. Each tool may be recorded once.
func (r *RunResult) Record(result ToolResult) error {
	name := result.Tool.Name
	if _, exists := r.results[name]; exists {
		return fmt.Errorf("tool %q already has a recorded result", name)
	}
	known := false
	for _, n := range r.order {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		r.order = append(r.order, name)
	}
	r.results[name] = result
	return nil
}

// ExitCode returns the recorded exit code for a tool
func (r *RunResult) ExitCode(name string) (int, bool) {
	res, ok := r.results[name]
	if !ok {
		return 0, false
	}
	return res.ExitCode, true
}

// Get returns the recorded result for a tool
func (r *RunResult) Get(name string) (ToolResult, bool) {
	res, ok := r.results[name]
	return res, ok
}

// Len returns the number of recorded results
func (r *RunResult) Len() int {
	return len(r.results)
}

// Complete returns true when every expected tool has a recorded result
func (r *RunResult) Complete() bool {
	return len(r.results) == len(r.order)
}

// Names returns recorded tool names in start order
func (r *RunResult) Names() []string {
	names := make([]string, 0, len(r.results))
	for _, n := range r.order {
		if _, ok := r.results[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Results returns recorded results in start order
func (r *RunResult) Results() []ToolResult {
	out := make([]ToolResult, 0, len(r.results))
	for _, n := range r.order {
		if res, ok := r.results[n]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Passed returns true iff every recorded exit code is exactly 0
func (r *RunResult) Passed() bool {
	for _, res := range r.results {
		if res.ExitCode != 0 {
			return false
		}
	}
	return true
}

// Failed returns results with a non-zero exit code, in start order
func (r *RunResult) Failed() []ToolResult {
	var out []ToolResult
	for _, res := range r.Results() {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns results with exit code 0, in start order
func (r *RunResult) Succeeded() []ToolResult {
	var out []ToolResult
	for _, res := range r.Results() {
		if res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// ExitStatus returns ExitSuccess when all tools passed, ExitFailure otherwise
func (r *RunResult) ExitStatus() int {
	if r.Passed() {
		return ExitSuccess
	}
	return ExitFailure
}

// DisplayNames returns the display names of the given results
func DisplayNames(results []ToolResult) []string {
	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Tool.DisplayName())
	}
	return names
}
