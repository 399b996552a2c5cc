// Package filelock guards a project against concurrent standards runs and
// writes report files atomically.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another standards run holds the project lock
var ErrLocked = errors.New("another standards run is in progress")

// RunLockName is the lock file created inside the .standards directory
const RunLockName = "run.lock"

// RunLock is an exclusive, non-blocking lock held for the duration of a run.
// The lock file records the holder's pid for diagnostics.
type RunLock struct {
	flock *flock.Flock
	path  string
}

// AcquireRunLock takes the run lock in dir, creating dir if needed.
// It never blocks: if another process holds the lock it returns ErrLocked.
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, RunLockName)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to try lock on %s: %w", path, err)
	}
	if !acquired {
		if pid := readHolder(path); pid > 0 {
			return nil, fmt.Errorf("%w (pid %d holds %s)", ErrLocked, pid, path)
		}
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}

	// Best effort: the pid only feeds the ErrLocked message of other runs
	_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)

	return &RunLock{flock: fl, path: path}, nil
}

// Path returns the lock file path
func (l *RunLock) Path() string {
	return l.path
}

// Release clears the recorded pid and unlocks. The lock file stays in place
// so every run locks the same inode. It is safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.flock == nil || !l.flock.Locked() {
		return nil
	}
	_ = os.Truncate(l.path, 0)
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

func readHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// AtomicWrite writes data to path through a temp file in the same directory
// followed by a rename, so readers see either the old or the new content.
// Missing parent directories are created.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}

// WriteLockPath returns the lock file LockAndWrite uses for path: a hidden
// ".<name>.lock" next to it.
func WriteLockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

// LockAndWrite serializes writers of path on WriteLockPath(path) and writes
// atomically while holding the lock. The lock file is left behind for the
// next writer.
func LockAndWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	lockPath := WriteLockPath(path)
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", lockPath, err)
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}
