package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/standards/internal/config"
)

// project is the loaded configuration and where it came from
type project struct {
	Dir        string
	ConfigPath string
	Found      bool // false when defaults are in use
	Config     *config.Config
}

// loadProject resolves the project directory and loads its configuration.
// An explicit --config path wins; otherwise the nearest .standards/config.yaml
// above the working directory is used.
func loadProject(cmd *cobra.Command) (*project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	dir := wd
	if configPath == "" {
		dir, err = config.FindProjectDir(wd)
		if err != nil {
			return nil, fmt.Errorf("failed to find project directory: %w", err)
		}
		configPath = config.ConfigPath(dir)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	_, statErr := os.Stat(configPath)

	return &project{
		Dir:        dir,
		ConfigPath: configPath,
		Found:      statErr == nil,
		Config:     cfg,
	}, nil
}

// applyColorFlag disables color globally when --no-color is set.
// Reports whether color output remains allowed.
func applyColorFlag(cmd *cobra.Command) bool {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		color.NoColor = true
	}
	return !color.NoColor
}
