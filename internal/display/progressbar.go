package display

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultGlyph is drawn at the head of an unfinished progress bar
const DefaultGlyph = "\U0001F37A"

// DefaultBarWidth is the number of cells in the bar
const DefaultBarWidth = 28

// ProgressBar is a step counter rendered as an ASCII bar with a custom head glyph
type ProgressBar struct {
	current     int
	total       int
	width       int
	glyph       string
	enableColor bool
}

// NewProgressBar creates a progress bar with total steps. An empty glyph
// falls back to '>'.
func NewProgressBar(total, width int, glyph string, enableColor bool) *ProgressBar {
	if width < 1 {
		width = DefaultBarWidth
	}
	if glyph == "" {
		glyph = ">"
	}
	return &ProgressBar{
		total:       total,
		width:       width,
		glyph:       glyph,
		enableColor: enableColor,
	}
}

// Advance moves the bar forward by one step, never past total
func (pb *ProgressBar) Advance() {
	if pb.current < pb.total {
		pb.current++
	}
}

// Current returns the number of completed steps
func (pb *ProgressBar) Current() int {
	return pb.current
}

// Total returns the number of steps
func (pb *ProgressBar) Total() int {
	return pb.total
}

// Finished reports whether every step is done
func (pb *ProgressBar) Finished() bool {
	return pb.current >= pb.total
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	if pb.total == 0 {
		return 0
	}
	perc := (pb.current * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	return perc
}

// Render generates the bar, e.g. " 2/5 [===========>                ]  40%"
func (pb *ProgressBar) Render() string {
	perc := pb.Percentage()
	filled := (perc * pb.width) / 100

	var bar strings.Builder
	bar.WriteString(strings.Repeat("=", filled))
	empty := pb.width - filled
	if filled < pb.width {
		// The glyph replaces as many cells as it is wide.
		glyphWidth := runewidth.StringWidth(pb.glyph)
		if glyphWidth < 1 {
			glyphWidth = 1
		}
		bar.WriteString(pb.glyph)
		empty -= glyphWidth
		if empty < 0 {
			empty = 0
		}
	}
	bar.WriteString(strings.Repeat(" ", empty))

	counterWidth := len(fmt.Sprint(pb.total))
	result := fmt.Sprintf(" %*d/%d [%s] %3d%%", counterWidth, pb.current, pb.total, bar.String(), perc)

	if pb.enableColor && perc < 100 {
		result = fmt.Sprintf("\033[36m%s\033[0m", result) // Cyan for in-progress
	} else if pb.enableColor {
		result = fmt.Sprintf("\033[32m%s\033[0m", result) // Green for complete
	}

	return result
}
