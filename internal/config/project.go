package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides project directory discovery when set
const HomeEnv = "STANDARDS_HOME"

// FindProjectDir returns the directory whose .standards/config.yaml applies
// to start.
// Priority order:
//  1. STANDARDS_HOME environment variable (if set)
//  2. Nearest ancestor of start (inclusive) containing .standards/config.yaml
//  3. start itself (fallback, defaults apply)
func FindProjectDir(start string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	current := abs
	for {
		if info, err := os.Stat(ConfigPath(current)); err == nil && !info.IsDir() {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return abs, nil
}

// ResolvePath makes p absolute relative to the project directory. Absolute
// paths and empty strings are returned unchanged.
func ResolvePath(projectDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}
