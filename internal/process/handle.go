// Package process wraps external tool invocations as child processes whose
// liveness, output and exit code can be observed without blocking.
package process

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/harrison/standards/internal/models"
)

// ErrAlreadyStarted is returned when Start is called twice on the same handle.
var ErrAlreadyStarted = errors.New("process already started")

// OutputDrainDelay bounds how long output is still collected after the tool
// itself exits. Background children that inherited the pipes do not keep
// the handle running past it.
const OutputDrainDelay = 250 * time.Millisecond

// Handle owns one OS child process running a tool.
type Handle struct {
	tool models.Tool
	dir  string

	output *syncBuffer
	cmd    *exec.Cmd
	done   chan struct{}

	mu       sync.Mutex
	started  bool
	exitCode int
}

// New creates a handle for tool that will run in dir. An empty dir means the
// current working directory.
func New(tool models.Tool, dir string) *Handle {
	return &Handle{
		tool:     tool,
		dir:      dir,
		output:   &syncBuffer{},
		done:     make(chan struct{}),
		exitCode: -1,
	}
}

// Tool returns the tool this handle runs
func (h *Handle) Tool() models.Tool {
	return h.tool
}

// Start launches the child process and returns immediately. Stdout and
// stderr are captured into a single buffer. A binary that cannot be located
// or executed is reported as an error and the handle never runs.
func (h *Handle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(h.tool.Executable(), h.tool.Args...)
	cmd.Dir = h.dir
	if cmd.Dir == "" {
		if wd, err := os.Getwd(); err == nil {
			cmd.Dir = wd
		}
	}
	cmd.Stdout = h.output
	cmd.Stderr = h.output
	cmd.WaitDelay = OutputDrainDelay

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", h.tool.Name, err)
	}

	h.cmd = cmd
	h.started = true

	go h.wait()

	return nil
}

// wait reaps the child and publishes its exit code. It is the only writer of
// exitCode after Start.
func (h *Handle) wait() {
	// Wait reports exec.ErrWaitDelay when the drain delay cut the pipes
	// short; the process state still holds the real exit status.
	_ = h.cmd.Wait()

	code := -1
	if h.cmd.ProcessState != nil {
		code = h.cmd.ProcessState.ExitCode()
	}

	h.mu.Lock()
	h.exitCode = code
	h.mu.Unlock()

	close(h.done)
}

// IsRunning reports whether the child is still alive. It never blocks.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	started := h.started
	h.mu.Unlock()
	if !started {
		return false
	}

	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed once the child has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Output returns everything the child wrote to stdout and stderr so far.
func (h *Handle) Output() string {
	return h.output.String()
}

// ExitCode returns the exit code once the process has terminated. The second
// return value is false while the process is running or was never started.
// A process killed by a signal reports -1.
func (h *Handle) ExitCode() (int, bool) {
	if !h.exited() {
		return 0, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, true
}

// Pid returns the OS process id, or 0 before Start
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *Handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// syncBuffer is the output sink shared by the child's stdout and stderr.
// exec.Cmd's copier goroutine writes while the supervisor reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
