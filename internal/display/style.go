package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Style renders the summary blocks printed at the end of a run.
// Colors: success is black on green, error is white on red, note is yellow,
// tool headers are green.
type Style struct {
	writer  io.Writer
	success *color.Color
	fail    *color.Color
	note    *color.Color
	info    *color.Color
}

// NewStyle creates a Style writing to w. When enableColor is false every
// block is plain text.
func NewStyle(w io.Writer, enableColor bool) *Style {
	s := &Style{
		writer:  w,
		success: color.New(color.FgBlack, color.BgGreen),
		fail:    color.New(color.FgWhite, color.BgRed),
		note:    color.New(color.FgYellow),
		info:    color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{s.success, s.fail, s.note, s.info} {
		if enableColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// Success prints an "[OK]" block
func (s *Style) Success(message string) {
	s.block(s.success, " [OK] ", message)
}

// Error prints an "[ERROR]" block
func (s *Style) Error(message string) {
	s.block(s.fail, " [ERROR] ", message)
}

// Note prints a "! [NOTE]" block
func (s *Style) Note(message string) {
	s.block(s.note, " ! [NOTE] ", message)
}

// Info formats text as a tool header
func (s *Style) Info(text string) string {
	return s.info.Sprint(text)
}

func (s *Style) block(c *color.Color, prefix, message string) {
	var b strings.Builder
	b.WriteString("\n")
	for i, line := range strings.Split(message, "\n") {
		p := prefix
		if i > 0 {
			p = strings.Repeat(" ", len(prefix))
		}
		b.WriteString(c.Sprint(p + line + " "))
		b.WriteString("\n")
	}
	fmt.Fprintln(s.writer, b.String())
}
