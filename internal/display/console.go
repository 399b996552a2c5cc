package display

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// ansiPattern matches CSI escape sequences, which occupy no columns on screen
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Console manages a stack of output sections on a writer.
//
// On an interactive terminal a section can be rewritten or cleared after the
// fact: the console moves the cursor up over that section and everything
// below it, erases to the end of the screen, and reprints. On any other
// writer output is append-only and Clear only forgets the section's content.
type Console struct {
	writer      io.Writer
	interactive bool
	width       int
	sections    []*Section
}

// NewConsole creates a console. width is the terminal width in columns used
// to account for wrapped lines; 0 disables wrap accounting.
func NewConsole(w io.Writer, interactive bool, width int) *Console {
	return &Console{
		writer:      w,
		interactive: interactive,
		width:       width,
	}
}

// DetectTerminal reports whether f is an interactive terminal and its width
func DetectTerminal(f *os.File) (interactive bool, width int) {
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false, 0
	}
	if w, _, err := term.GetSize(int(fd)); err == nil {
		width = w
	}
	return true, width
}

// Interactive reports whether sections can be redrawn in place
func (c *Console) Interactive() bool {
	return c.interactive
}

// Section appends a new, empty section at the bottom of the console
func (c *Console) Section() *Section {
	s := &Section{console: c}
	c.sections = append(c.sections, s)
	return s
}

func (c *Console) index(s *Section) int {
	for i, sec := range c.sections {
		if sec == s {
			return i
		}
	}
	return -1
}

// erase removes the displayed lines of sections[from:] from the screen
func (c *Console) erase(from int) {
	lines := 0
	for _, s := range c.sections[from:] {
		lines += s.height()
	}
	if lines > 0 {
		fmt.Fprintf(c.writer, "\x1b[%dA\x1b[0J", lines)
	}
}

// reprint writes the content of sections[from:]
func (c *Console) reprint(from int) {
	for _, s := range c.sections[from:] {
		c.print(s.lines)
	}
}

func (c *Console) print(lines []string) {
	for _, l := range lines {
		fmt.Fprintln(c.writer, l)
	}
}

// redraw applies mutate to section s and refreshes the screen from s down
func (c *Console) redraw(s *Section, mutate func()) {
	idx := c.index(s)
	if idx < 0 {
		mutate()
		return
	}
	c.erase(idx)
	mutate()
	c.reprint(idx)
}

// displayHeight is the number of terminal rows a line occupies
func (c *Console) displayHeight(line string) int {
	if c.width <= 0 {
		return 1
	}
	w := runewidth.StringWidth(ansiPattern.ReplaceAllString(line, ""))
	if w <= c.width {
		return 1
	}
	return (w + c.width - 1) / c.width
}

// Section is a region of console output that can be appended to, replaced
// or cleared.
type Section struct {
	console *Console
	lines   []string
}

// Write appends content to the section. A trailing newline is implied.
func (s *Section) Write(content string) {
	added := splitLines(content)
	if len(added) == 0 {
		return
	}
	if !s.console.interactive {
		s.lines = append(s.lines, added...)
		s.console.print(added)
		return
	}
	s.console.redraw(s, func() {
		s.lines = append(s.lines, added...)
	})
}

// Writeln appends a single line
func (s *Section) Writeln(line string) {
	s.Write(line + "\n")
}

// Overwrite replaces the section's content
func (s *Section) Overwrite(content string) {
	replaced := splitLines(content)
	if !s.console.interactive {
		s.lines = replaced
		s.console.print(replaced)
		return
	}
	s.console.redraw(s, func() {
		s.lines = replaced
	})
}

// Clear removes the section's content. On an interactive terminal the lines
// disappear from the screen.
func (s *Section) Clear() {
	if !s.console.interactive {
		s.lines = nil
		return
	}
	s.console.redraw(s, func() {
		s.lines = nil
	})
}

// Content returns the section's current content
func (s *Section) Content() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

// Empty reports whether the section holds no lines
func (s *Section) Empty() bool {
	return len(s.lines) == 0
}

func (s *Section) height() int {
	h := 0
	for _, l := range s.lines {
		h += s.console.displayHeight(l)
	}
	return h
}

// splitLines breaks content into lines, dropping one trailing newline and
// normalizing carriage returns
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}
