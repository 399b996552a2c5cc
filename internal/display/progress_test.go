package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/standards/internal/models"
)

func runReport(t *testing.T, opts ReporterOptions, outcomes map[string]int, outputs map[string]string, order ...string) (string, *ProgressReporter) {
	t.Helper()

	var buf bytes.Buffer
	rep := NewProgressReporter(&buf, opts)

	tools := make([]models.Tool, 0, len(order))
	for _, name := range order {
		tools = append(tools, models.NewTool(name, ""))
	}
	result := models.NewRunResult(tools)

	rep.Begin(tools)
	for _, tool := range tools {
		res := models.ToolResult{
			Tool:     tool,
			ExitCode: outcomes[tool.Name],
			Status:   models.StatusForExitCode(outcomes[tool.Name]),
			Output:   outputs[tool.Name],
		}
		require.NoError(t, result.Record(res))
		rep.ToolFinished(res)
	}
	rep.End(result)

	return buf.String(), rep
}

func TestProgressReporter_AllPass(t *testing.T) {
	out, rep := runReport(t, ReporterOptions{},
		map[string]int{"phpcs": 0, "phpmd": 0},
		map[string]string{"phpcs": "noise from phpcs\n", "phpmd": "noise from phpmd\n"},
		"phpcs", "phpmd")

	assert.Contains(t, out, "[OK] All standards passed!")
	assert.NotContains(t, out, "noise from", "passing tool output must be suppressed")
	assert.NotContains(t, out, "[ERROR]")
	assert.NotContains(t, out, "[NOTE]")
	assert.Equal(t, 2, rep.Progress().Current())
	assert.True(t, rep.Progress().Finished())
}

func TestProgressReporter_SingleToolNamesIt(t *testing.T) {
	out, _ := runReport(t, ReporterOptions{},
		map[string]int{"vendor/bin/phpstan": 0}, nil,
		"vendor/bin/phpstan")

	assert.Contains(t, out, "[OK] phpstan passed")
	assert.NotContains(t, out, SuccessAllMessage)
}

func TestProgressReporter_Failures(t *testing.T) {
	out, rep := runReport(t, ReporterOptions{},
		map[string]int{"a": 0, "b": 2, "c": 0, "d": 1},
		map[string]string{
			"a": "a is fine\n",
			"b": "b: line 1\nb: line 2\n",
			"c": "c is fine\n",
			"d": "d broke\n",
		},
		"a", "b", "c", "d")

	assert.Contains(t, out, "b\nb: line 1\nb: line 2\n")
	assert.Contains(t, out, "d\nd broke\n")
	assert.NotContains(t, out, "is fine")
	assert.Contains(t, out, "[NOTE] [a, c] passed standards")
	assert.Contains(t, out, "[ERROR] [b, d] did not pass standards")
	assert.Less(t, strings.Index(out, "[NOTE]"), strings.Index(out, "[ERROR]"))
	assert.Equal(t, 4, rep.Progress().Current(), "progress advances for failures too")

	section, ok := rep.Section("b")
	require.True(t, ok)
	assert.Equal(t, "b\nb: line 1\nb: line 2\n", section.Content())

	section, ok = rep.Section("a")
	require.True(t, ok)
	assert.True(t, section.Empty())
}

func TestProgressReporter_AllFailHasNoNote(t *testing.T) {
	out, _ := runReport(t, ReporterOptions{},
		map[string]int{"a": 1, "b": 1}, nil,
		"a", "b")

	assert.NotContains(t, out, "[NOTE]")
	assert.Contains(t, out, "[ERROR] [a, b] did not pass standards")
}

func TestProgressReporter_InteractiveDrawsAndClearsProgress(t *testing.T) {
	out, rep := runReport(t, ReporterOptions{Interactive: true, Glyph: ">"},
		map[string]int{"a": 0, "b": 1},
		map[string]string{"b": "broken\n"},
		"a", "b")

	assert.Contains(t, out, " 0/2 [>")
	assert.Contains(t, out, " 1/2 [")
	assert.Contains(t, out, " 2/2 [")
	assert.Contains(t, out, "broken")

	progress := rep.progress
	require.NotNil(t, progress)
	assert.True(t, progress.Empty(), "progress section is cleared at the end")

	// The final frame before the summary holds only the failed tool output.
	lastErase := strings.LastIndex(out, "\x1b[0J")
	require.NotEqual(t, -1, lastErase)
	tail := out[lastErase+len("\x1b[0J"):]
	assert.NotContains(t, tail, "/2 [", "no progress bar may remain after the run")
	assert.Contains(t, tail, "[ERROR] [b] did not pass standards")
}

func TestProgressReporter_Color(t *testing.T) {
	out, _ := runReport(t, ReporterOptions{Color: true},
		map[string]int{"a": 1}, nil, "a")

	assert.Contains(t, out, "\x1b[")
}

func TestSuccessAndFailureMessages(t *testing.T) {
	tools := []models.Tool{models.NewTool("phpcs", ""), models.NewTool("phpmd", "")}
	result := models.NewRunResult(tools)
	require.NoError(t, result.Record(models.ToolResult{Tool: tools[0], ExitCode: 1}))
	require.NoError(t, result.Record(models.ToolResult{Tool: tools[1], ExitCode: 0}))

	assert.Equal(t, SuccessAllMessage, SuccessMessage(result))
	assert.Equal(t, "[phpcs] did not pass standards", FailureMessage(result))
}
