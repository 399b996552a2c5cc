package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
)

func TestAcquireRunLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".standards")

	lock, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, RunLockName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}

	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("lock file not written: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("expected pid %d in lock file, got %q", os.Getpid(), string(data))
	}
}

func TestAcquireRunLockHeld(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("first AcquireRunLock failed: %v", err)
	}

	_, err = AcquireRunLock(dir)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("pid %d", os.Getpid())) {
		t.Errorf("expected holder pid in %q", err.Error())
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	second, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("AcquireRunLock after release failed: %v", err)
	}
	second.Release()
}

func TestRunLockRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("lock file %s should stay in place: %v", lock.Path(), err)
	}
	if len(data) != 0 {
		t.Errorf("released lock should not name a holder, got %q", string(data))
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}

	var nilLock *RunLock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release should be a no-op, got %v", err)
	}
}

func TestRunLockKeepsInodeAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}
	before, err := os.Stat(first.Path())
	if err != nil {
		t.Fatalf("stat lock: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	second, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("AcquireRunLock after release failed: %v", err)
	}
	defer second.Release()

	after, err := os.Stat(second.Path())
	if err != nil {
		t.Fatalf("stat lock: %v", err)
	}
	if !os.SameFile(before, after) {
		t.Error("lock file was replaced between runs")
	}

	// A competing run locks through the path as well
	other := flock.New(second.Path())
	defer other.Close()
	acquired, err := other.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		other.Unlock()
		t.Fatal("competing run acquired a held run lock")
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "report.md")

	content := []byte("# Standards Report\n")
	if err := AtomicWrite(targetPath, content); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(readContent))
	}
}

func TestAtomicWriteOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "report.md")

	if err := os.WriteFile(targetPath, []byte("old report"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	newContent := []byte("new report")
	if err := AtomicWrite(targetPath, newContent); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(newContent) {
		t.Errorf("Expected content %q, got %q", string(newContent), string(readContent))
	}
}

func TestAtomicWritePermissions(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "report.md")

	if err := AtomicWrite(targetPath, []byte("content")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != os.FileMode(0644) {
		t.Errorf("Expected permissions %v, got %v", os.FileMode(0644), info.Mode().Perm())
	}
}

func TestAtomicWriteNoTempFileLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "report.md")

	if err := AtomicWrite(targetPath, []byte("content")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.md" {
		var files []string
		for _, entry := range entries {
			files = append(files, entry.Name())
		}
		t.Errorf("Expected only report.md, found %v", files)
	}
}

func TestAtomicWriteCreateDirectory(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "reports", "nested", "report.html")

	if err := AtomicWrite(targetPath, []byte("<p>ok</p>")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if _, err := os.Stat(targetPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestLockAndWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "report.md")
	lockPath := WriteLockPath(targetPath)

	content := []byte("LockAndWrite content")
	if err := LockAndWrite(targetPath, content); err != nil {
		t.Fatalf("LockAndWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(readContent))
	}

	if lockPath != filepath.Join(tmpDir, ".report.md.lock") {
		t.Errorf("unexpected lock path %s", lockPath)
	}

	// The lock file is kept but no longer held
	fl := flock.New(lockPath)
	defer fl.Close()
	acquired, err := fl.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Error("LockAndWrite must release its lock")
	}
	fl.Unlock()
}

func TestLockAndWriteReadOnlyDirectory(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root bypasses permission checks")
	}

	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	if err := os.Mkdir(readOnlyDir, 0555); err != nil {
		t.Fatalf("Failed to create read-only directory: %v", err)
	}
	defer os.Chmod(readOnlyDir, 0755)

	targetPath := filepath.Join(readOnlyDir, "report.md")
	if err := LockAndWrite(targetPath, []byte("content")); err == nil {
		t.Fatal("Expected LockAndWrite to fail in a read-only directory")
	}
	if _, err := os.Stat(targetPath); !os.IsNotExist(err) {
		t.Errorf("report should not exist after a failed write")
	}
}

func TestConcurrentLockAndWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "report.md")

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			if err := LockAndWrite(targetPath, []byte(string(rune('A'+id)))); err != nil {
				t.Errorf("LockAndWrite failed for goroutine %d: %v", id, err)
			}
		}(i)
	}

	wg.Wait()

	content, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	// One complete write wins
	if len(content) != 1 {
		t.Errorf("Expected 1 byte, got %d bytes: %q", len(content), string(content))
	}
}
