package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %v, want 100ms", cfg.PollInterval)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.LogDir != filepath.Join(".standards", "logs") {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".standards/logs")
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if len(cfg.Tools) == 0 {
		t.Error("default config must ship tools")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `poll_interval: 250ms
log_level: debug
log_dir: /tmp/logs
progress_glyph: "#"
history:
  enabled: true
tools:
  - name: phpcs
    binary: vendor/bin/phpcs
    args: [--standard=PSR12, src]
  - name: phpstan
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/logs", cfg.LogDir)
	assert.Equal(t, "#", cfg.ProgressGlyph)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(".standards", "history.db"), cfg.History.DBPath, "unset keys keep defaults")

	tools := cfg.AllTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "phpcs", tools[0].Name)
	assert.Equal(t, "vendor/bin/phpcs", tools[0].Executable())
	assert.Equal(t, []string{"--standard=PSR12", "src"}, tools[0].Args)
	assert.Equal(t, "phpstan", tools[1].Executable())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigEmptyLogDirDisablesFileLogs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_dir: \"\"\n"), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.LogDir)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "tools: [unclosed",
			wantErr: "failed to parse config file",
		},
		{
			name:    "bad poll interval",
			content: "poll_interval: soon\n",
			wantErr: "invalid poll_interval format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0644))

			_, err := LoadConfig(configPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".standards"), 0755))
	require.NoError(t, os.WriteFile(ConfigPath(dir), []byte("log_level: error\n"), 0644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	interval := 5 * time.Millisecond
	level := "trace"
	history := true
	cfg.MergeWithFlags(&interval, &level, nil, &history)

	assert.Equal(t, interval, cfg.PollInterval)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, filepath.Join(".standards", "logs"), cfg.LogDir, "nil flag keeps config value")
	assert.True(t, cfg.History.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.PollInterval = 0 },
			wantErr: "poll_interval must be > 0",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "invalid log_level",
		},
		{
			name:    "no tools",
			mutate:  func(c *Config) { c.Tools = nil },
			wantErr: "at least one tool",
		},
		{
			name:    "nameless tool",
			mutate:  func(c *Config) { c.Tools = []ToolConfig{{Binary: "go"}} },
			wantErr: "tools[0]",
		},
		{
			name: "duplicate tool",
			mutate: func(c *Config) {
				c.Tools = []ToolConfig{{Name: "a"}, {Name: "a"}}
			},
			wantErr: "duplicate tool name",
		},
		{
			name: "history without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.DBPath = ""
			},
			wantErr: "history.db_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSelectTools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools = []ToolConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	names := func(t *testing.T, filter string) []string {
		t.Helper()
		tools, err := cfg.SelectTools(filter)
		require.NoError(t, err)
		var out []string
		for _, tool := range tools {
			out = append(out, tool.Name)
		}
		return out
	}

	t.Run("empty filter selects all", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "c"}, names(t, ""))
		assert.Equal(t, []string{"a", "b", "c"}, names(t, "  "))
	})

	t.Run("subset", func(t *testing.T) {
		assert.Equal(t, []string{"a", "c"}, names(t, "a,c"))
	})

	t.Run("whitespace trimmed and whitelist order kept", func(t *testing.T) {
		assert.Equal(t, []string{"c", "a"}, names(t, " c , a "))
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		assert.Equal(t, []string{"b"}, names(t, "b,b"))
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := cfg.SelectTools("a,x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownTool))
		assert.Contains(t, err.Error(), "'x'")
	})

	t.Run("only separators", func(t *testing.T) {
		_, err := cfg.SelectTools(",,")
		assert.Error(t, err)
	})
}
