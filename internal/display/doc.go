// Package display provides terminal UI for a standards run: sectioned
// console output, the shared progress bar, summary blocks and warnings.
//
// # Sections
//
// A Console stacks Sections top to bottom. On an interactive terminal a
// section can be rewritten or cleared after it was printed:
//
//	console := display.NewConsole(os.Stdout, true, 80)
//	phpcs := console.Section()
//	progress := console.Section()
//	progress.Overwrite(bar.Render())
//	phpcs.Writeln("phpcs")
//	phpcs.Write(output) // progress stays below
//	phpcs.Clear()
//
// On other writers output is append-only.
//
// # Progress
//
// ProgressReporter implements the runner's reporting hooks. Each tool gets
// a section that is cleared when the tool passes and filled with its output
// when it fails. The progress bar advances once per finished tool regardless
// of outcome and is cleared at the end, before the summary:
//
//	reporter := display.NewProgressReporter(os.Stdout, display.ReporterOptions{
//	    Interactive: true,
//	    Color:       true,
//	    Glyph:       display.DefaultGlyph,
//	})
//
// # Warnings
//
//	display.WarnMissingBinaries([]string{"phpstan"}).Display(os.Stderr)
//
// All functions accept io.Writer interfaces for testability.
package display
