package display

import (
	"fmt"
	"io"
	"strings"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Tools      []string // Related tools (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("\x1b[33m")
	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Tools) > 0 {
		b.WriteString("    ")
		if len(w.Tools) == 1 {
			b.WriteString("Affected tool:\n")
		} else {
			b.WriteString("Affected tools:\n")
		}

		for i, tool := range w.Tools {
			b.WriteString("      ")
			b.WriteString(fmt.Sprintf("%d. %s", i+1, tool))
			b.WriteString("\n")
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	b.WriteString("\x1b[0m")

	fmt.Fprint(out, b.String())
}

// WarnMissingBinaries creates a warning for tools whose executable is not on PATH
func WarnMissingBinaries(tools []string) Warning {
	return Warning{
		Title:      "Tool binaries not found",
		Message:    "These tools will fail to launch and count as failures.",
		Tools:      tools,
		Suggestion: "Install the tools or set 'binary' in .standards/config.yaml",
	}
}

// WarnDefaultConfig creates a warning shown when no config file was found
func WarnDefaultConfig(path string) Warning {
	return Warning{
		Title:      "No configuration file found",
		Message:    fmt.Sprintf("%s does not exist, running the default tool set.", path),
		Suggestion: "Create the file to choose which tools run",
	}
}
