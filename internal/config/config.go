package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/standards/internal/models"
)

// ErrUnknownTool is returned when a whitelisted tool name is not configured
var ErrUnknownTool = errors.New("could not resolve tool")

// DirName is the per-project directory holding config, logs and history
const DirName = ".standards"

// ToolConfig represents one configured analysis tool
type ToolConfig struct {
	// Name identifies the tool on the command line
	Name string `yaml:"name"`

	// Binary is the executable to run; defaults to Name
	Binary string `yaml:"binary,omitempty"`

	// Args are passed to the binary in order
	Args []string `yaml:"args,omitempty"`
}

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents standards configuration options
type Config struct {
	// PollInterval is the delay between sweeps over running tools
	PollInterval time.Duration `yaml:"poll_interval"`

	// LogLevel sets the console logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written ("" disables file logs)
	LogDir string `yaml:"log_dir"`

	// ProgressGlyph is drawn at the head of the progress bar
	ProgressGlyph string `yaml:"progress_glyph"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`

	// Tools lists the analysis tools in run order
	Tools []ToolConfig `yaml:"tools"`
}

// DefaultTools is the tool set used when no configuration file names any
func DefaultTools() []ToolConfig {
	return []ToolConfig{
		{Name: "vet", Binary: "go", Args: []string{"vet", "./..."}},
		{Name: "staticcheck", Args: []string{"./..."}},
		{Name: "golangci-lint", Args: []string{"run"}},
	}
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  100 * time.Millisecond,
		LogLevel:      "warn",
		LogDir:        filepath.Join(DirName, "logs"),
		ProgressGlyph: "\U0001F37A",
		History: HistoryConfig{
			Enabled: false,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
		Tools: DefaultTools(),
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are parsed by hand so "100ms" style strings work
	type yamlConfig struct {
		PollInterval  string        `yaml:"poll_interval"`
		LogLevel      string        `yaml:"log_level"`
		LogDir        *string       `yaml:"log_dir"`
		ProgressGlyph string        `yaml:"progress_glyph"`
		History       HistoryConfig `yaml:"history"`
		Tools         []ToolConfig  `yaml:"tools"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.PollInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval format %q: %w", yamlCfg.PollInterval, err)
		}
		cfg.PollInterval = interval
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	// log_dir is explicitly set if present, even when empty
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}
	if yamlCfg.ProgressGlyph != "" {
		cfg.ProgressGlyph = yamlCfg.ProgressGlyph
	}
	if len(yamlCfg.Tools) > 0 {
		cfg.Tools = yamlCfg.Tools
	}

	// Merge history config field by field, only for keys that were provided
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
		}
	}

	return cfg, nil
}

// ConfigPath returns the config file location inside dir
func ConfigPath(dir string) string {
	return filepath.Join(dir, DirName, "config.yaml")
}

// LoadConfigFromDir loads configuration from .standards/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(ConfigPath(dir))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(pollInterval *time.Duration, logLevel *string, logDir *string, history *bool) {
	if pollInterval != nil {
		c.PollInterval = *pollInterval
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if history != nil {
		c.History.Enabled = *history
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0, got %v", c.PollInterval)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if len(c.Tools) == 0 {
		return fmt.Errorf("at least one tool must be configured")
	}

	seen := make(map[string]bool, len(c.Tools))
	for i, tc := range c.Tools {
		tool := tc.Tool()
		if err := tool.Validate(); err != nil {
			return fmt.Errorf("tools[%d]: %w", i, err)
		}
		if seen[tool.Name] {
			return fmt.Errorf("tools[%d]: duplicate tool name %q", i, tool.Name)
		}
		seen[tool.Name] = true
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

// Tool converts the configuration entry to a models.Tool
func (tc ToolConfig) Tool() models.Tool {
	return models.NewTool(strings.TrimSpace(tc.Name), tc.Binary, tc.Args...)
}

// AllTools returns every configured tool in configuration order
func (c *Config) AllTools() []models.Tool {
	tools := make([]models.Tool, 0, len(c.Tools))
	for _, tc := range c.Tools {
		tools = append(tools, tc.Tool())
	}
	return tools
}

// SelectTools resolves a comma-delimited whitelist against the configured
// tools. An empty filter selects every tool. Names are trimmed, duplicates
// collapse to their first occurrence, and the result follows whitelist order.
// Any name that is not configured fails the whole selection.
func (c *Config) SelectTools(filter string) ([]models.Tool, error) {
	all := c.AllTools()
	if strings.TrimSpace(filter) == "" {
		return all, nil
	}

	byName := make(map[string]models.Tool, len(all))
	for _, t := range all {
		byName[t.Name] = t
	}

	var selected []models.Tool
	picked := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tool, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w '%s'", ErrUnknownTool, name)
		}
		if picked[name] {
			continue
		}
		picked[name] = true
		selected = append(selected, tool)
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("tool filter %q selects no tools", filter)
	}
	return selected, nil
}
