// Package cli holds the terminal styling shared by the fdnverb commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor = lipgloss.Color("#5F87FF")
	mutedColor  = lipgloss.Color("#888888")
	textColor   = lipgloss.Color("#FFFFFF")
	errorColor  = lipgloss.Color("#D70000")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// Field is one line of a report.
type Field struct {
	Key   string
	Value string
}

// F formats a report field.
func F(key, format string, args ...any) Field {
	return Field{Key: key, Value: fmt.Sprintf(format, args...)}
}

// RenderReport lays out a titled block of key/value lines.
func RenderReport(title string, fields []Field) string {
	s := TitleStyle.Render(title) + "\n"
	for _, f := range fields {
		s += KeyStyle.Render(f.Key+":") + " " + ValueStyle.Render(f.Value) + "\n"
	}
	return s
}

// PrintReport writes a report to w.
func PrintReport(w io.Writer, title string, fields []Field) {
	fmt.Fprint(w, RenderReport(title, fields))
}

// PrintVersion prints version information.
func PrintVersion(version string) {
	PrintReport(os.Stdout, "fdnverb", []Field{{Key: "Version", Value: version}})
}

// PrintError prints an error message to stderr.
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}
