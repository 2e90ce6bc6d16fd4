package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// severityMark pairs the console glyph and lipgloss style for one severity.
// This table is a console-channel concern only; other channels render
// severity their own way.
type severityMark struct {
	glyph string
	style lipgloss.Style
}

var severityMarks = map[Severity]severityMark{
	SeverityInfo:    {"•", lipgloss.NewStyle().Foreground(lipgloss.Color("12"))},
	SeverityWarning: {"!", lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)},
	SeverityError:   {"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)},
	SeveritySuccess: {"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("10"))},
}

// consoleWriter is the built-in handler for the console channel. Styling is
// applied only when the output is a terminal.
type consoleWriter struct {
	out    io.Writer
	styled bool
	dimmed lipgloss.Style
	panel  lipgloss.Style
}

// newConsoleWriter writes to out, or stderr when out is nil.
func newConsoleWriter(out io.Writer) *consoleWriter {
	styled := false
	if out == nil {
		out = os.Stderr
		styled = isatty.IsTerminal(os.Stderr.Fd())
	}

	return &consoleWriter{
		out:    out,
		styled: styled,
		dimmed: lipgloss.NewStyle().Faint(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}

// write renders one notification. Warnings and errors get a bordered panel;
// info and success stay on a single line.
func (w *consoleWriter) write(n Notification) {
	mark, ok := severityMarks[n.Severity]
	if !ok {
		mark = severityMarks[SeverityInfo]
	}

	line := mark.glyph + " " + n.Message
	if op, ok := n.Context["operation"]; ok && op != "" {
		suffix := " (" + op + ")"
		if w.styled {
			suffix = w.dimmed.Render(suffix)
		}

		line += suffix
	}

	if !w.styled {
		fmt.Fprintln(w.out, line)
		return
	}

	line = mark.style.Render(mark.glyph) + " " + mark.style.Render(n.Message)
	if op, ok := n.Context["operation"]; ok && op != "" {
		line += w.dimmed.Render(" (" + op + ")")
	}

	if n.Severity == SeverityWarning || n.Severity == SeverityError {
		boxed := w.panel.BorderForeground(mark.style.GetForeground()).Render(line)
		fmt.Fprintln(w.out, boxed)

		return
	}

	fmt.Fprintln(w.out, line)
}
