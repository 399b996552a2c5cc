package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/standards/internal/models"
)

// SuccessAllMessage is shown when more than one tool ran and all passed
const SuccessAllMessage = "All standards passed!"

// ProgressReporter renders a run: one section per tool, holding that tool's
// output only if it failed, and one shared progress bar below them that
// advances each time any tool finishes.
type ProgressReporter struct {
	console  *Console
	style    *Style
	glyph    string
	color    bool
	bar      *ProgressBar
	progress *Section
	sections map[string]*Section
}

// ReporterOptions configures a ProgressReporter
type ReporterOptions struct {
	Interactive bool   // Redraw sections in place (terminal output)
	Width       int    // Terminal width, 0 if unknown
	Color       bool   // Emit ANSI colors
	Glyph       string // Progress bar head glyph
}

// NewProgressReporter creates a reporter writing to w
func NewProgressReporter(w io.Writer, opts ReporterOptions) *ProgressReporter {
	glyph := opts.Glyph
	if glyph == "" {
		glyph = DefaultGlyph
	}
	return &ProgressReporter{
		console:  NewConsole(w, opts.Interactive, opts.Width),
		style:    NewStyle(w, opts.Color),
		glyph:    glyph,
		color:    opts.Color,
		sections: make(map[string]*Section),
	}
}

// Begin creates a section per tool and the progress bar section beneath them
func (r *ProgressReporter) Begin(tools []models.Tool) {
	for _, t := range tools {
		r.sections[t.Name] = r.console.Section()
	}
	r.progress = r.console.Section()
	r.bar = NewProgressBar(len(tools), DefaultBarWidth, r.glyph, r.color)
	r.drawProgress()
}

// ToolFinished fills the tool's section with its output on failure or clears
// it on success, then advances the progress bar
func (r *ProgressReporter) ToolFinished(result models.ToolResult) {
	section, ok := r.sections[result.Tool.Name]
	if !ok {
		section = r.console.Section()
		r.sections[result.Tool.Name] = section
	}

	if result.Passed() {
		section.Clear()
	} else {
		section.Writeln(r.style.Info(result.Tool.DisplayName()))
		if out := strings.TrimRight(result.Output, "\n"); out != "" {
			section.Write(out)
		}
	}

	if r.bar != nil {
		r.bar.Advance()
	}
	r.drawProgress()
}

// End removes the progress bar and prints the summary
func (r *ProgressReporter) End(result *models.RunResult) {
	if r.progress != nil {
		r.progress.Clear()
	}

	if result.Passed() {
		r.style.Success(SuccessMessage(result))
		return
	}

	if succeeded := result.Succeeded(); len(succeeded) > 0 {
		r.style.Note(fmt.Sprintf("[%s] passed standards", strings.Join(models.DisplayNames(succeeded), ", ")))
	}
	r.style.Error(FailureMessage(result))
}

// Progress returns the shared progress bar, nil before Begin
func (r *ProgressReporter) Progress() *ProgressBar {
	return r.bar
}

// Section returns the output section of a tool
func (r *ProgressReporter) Section(name string) (*Section, bool) {
	s, ok := r.sections[name]
	return s, ok
}

// drawProgress redraws the bar. Append-only output gets no bar; it would
// leave one stale line per step.
func (r *ProgressReporter) drawProgress() {
	if r.progress == nil || r.bar == nil || !r.console.Interactive() {
		return
	}
	r.progress.Overwrite(r.bar.Render())
}

// SuccessMessage names the tool when exactly one ran, otherwise uses the
// generic message
func SuccessMessage(result *models.RunResult) string {
	results := result.Results()
	if len(results) == 1 {
		return fmt.Sprintf("%s passed", results[0].Tool.DisplayName())
	}
	return SuccessAllMessage
}

// FailureMessage lists the tools that did not pass
func FailureMessage(result *models.RunResult) string {
	return fmt.Sprintf("[%s] did not pass standards", strings.Join(models.DisplayNames(result.Failed()), ", "))
}
