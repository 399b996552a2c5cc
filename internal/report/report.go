// Package report renders a finished run as a Markdown or HTML document.
package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/standards/internal/filelock"
	"github.com/harrison/standards/internal/models"
)

// Format selects the report output format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Meta describes the run a report belongs to
type Meta struct {
	RunID      string
	ProjectDir string
	StartedAt  time.Time
	Duration   time.Duration
}

// FormatForPath picks the format from the file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report extension %q (use .md or .html)", filepath.Ext(path))
	}
}

// Markdown renders the run summary, a per-tool table, and the captured
// output of every failed tool.
func Markdown(meta Meta, result *models.RunResult) string {
	var sb strings.Builder
	sb.WriteString("# Standards Report\n\n")

	status := "✅ PASS"
	if !result.Passed() {
		status = "❌ FAIL"
	}

	sb.WriteString(fmt.Sprintf("- **Status:** %s (exit %d)\n", status, result.ExitStatus()))
	if meta.RunID != "" {
		sb.WriteString(fmt.Sprintf("- **Run:** `%s`\n", meta.RunID))
	}
	if meta.ProjectDir != "" {
		sb.WriteString(fmt.Sprintf("- **Project:** `%s`\n", meta.ProjectDir))
	}
	if !meta.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("- **Started:** %s\n", meta.StartedAt.Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("- **Duration:** %v\n", meta.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("- **Tools:** %d passed, %d failed\n\n", len(result.Succeeded()), len(result.Failed())))

	sb.WriteString("| Tool | Command | Status | Exit code | Duration |\n")
	sb.WriteString("|------|---------|--------|-----------|----------|\n")
	for _, res := range result.Results() {
		toolStatus := "✅ PASS"
		if !res.Passed() {
			toolStatus = "❌ FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s | %d | %v |\n",
			escapeCell(res.Tool.DisplayName()),
			escapeCell(res.Tool.CommandLine()),
			toolStatus,
			res.ExitCode,
			res.Duration.Round(time.Millisecond),
		))
	}

	for _, res := range result.Failed() {
		sb.WriteString(fmt.Sprintf("\n## %s\n\n", res.Tool.DisplayName()))
		if res.Err != nil {
			sb.WriteString(fmt.Sprintf("**Error:** %v\n\n", res.Err))
		}
		out := strings.TrimRight(res.Output, "\n")
		if out == "" {
			sb.WriteString("_No output._\n")
			continue
		}
		f := fence(out)
		sb.WriteString(f + "\n")
		sb.WriteString(out)
		sb.WriteString("\n" + f + "\n")
	}

	return sb.String()
}

// HTML renders the Markdown report as a standalone HTML page
func HTML(meta Meta, result *models.RunResult) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(meta, result)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	title := "Standards Report"
	if meta.RunID != "" {
		title += " " + meta.RunID
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Write renders the report in the format implied by path and writes it atomically
func Write(path string, meta Meta, result *models.RunResult) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatHTML:
		data, err = HTML(meta, result)
		if err != nil {
			return err
		}
	default:
		data = []byte(Markdown(meta, result))
	}

	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// fence returns a backtick fence longer than any backtick run in s
func fence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
