package logger

import (
	"strings"

	"github.com/fatih/color"
)

// Level orders log records by severity. A logger configured at a level
// drops records below it.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error"}

var levelColors = [...]color.Attribute{color.FgHiBlack, color.FgCyan, color.FgBlue, color.FgYellow, color.FgRed}

// ParseLevel maps a configured level name to a Level, ignoring case and
// surrounding space. Empty or unknown names mean LevelInfo.
func ParseLevel(name string) Level {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range levelNames {
		if n == name {
			return Level(i)
		}
	}
	return LevelInfo
}

func (l Level) valid() bool {
	return l >= LevelTrace && l <= LevelError
}

// String returns the configuration name of the level
func (l Level) String() string {
	if !l.valid() {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// tag is the label written between brackets in a log line
func (l Level) tag() string {
	return strings.ToUpper(l.String())
}

func (l Level) color() *color.Color {
	if !l.valid() {
		return color.New(color.Reset)
	}
	return color.New(levelColors[l])
}
