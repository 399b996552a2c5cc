package models

import (
	"errors"
	"path/filepath"
	"strings"
)

// Tool is one external analysis binary plus its invocation arguments
type Tool struct {
	Name   string   // Identifier used in configuration and the whitelist
	Binary string   // Executable to run (defaults to Name)
	Args   []string // Arguments passed to the binary, in order
}

// NewTool creates a Tool, copying args so later mutation of the caller's slice
// does not leak into the tool
func NewTool(name, binary string, args ...string) Tool {
	copied := make([]string, len(args))
	copy(copied, args)
	return Tool{Name: name, Binary: binary, Args: copied}
}

// Validate checks if the tool has all required fields
func (t Tool) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tool name is required")
	}
	if strings.ContainsAny(t.Name, ", ") {
		return errors.New("tool name must not contain commas or spaces")
	}
	return nil
}

// Executable returns the binary to launch, falling back to the tool name
func (t Tool) Executable() string {
	if t.Binary != "" {
		return t.Binary
	}
	return t.Name
}

// Argv returns the full command line: executable followed by arguments
func (t Tool) Argv() []string {
	argv := make([]string, 0, len(t.Args)+1)
	argv = append(argv, t.Executable())
	return append(argv, t.Args...)
}

// CommandLine renders the command line for display
func (t Tool) CommandLine() string {
	return strings.Join(t.Argv(), " ")
}

// DisplayName is the base name of the tool identifier, as shown in summaries
// (e.g. "vendor/bin/phpcs" becomes "phpcs")
func (t Tool) DisplayName() string {
	return filepath.Base(t.Name)
}
