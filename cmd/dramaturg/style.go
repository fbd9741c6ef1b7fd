package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/vampirenirmal/dramaturg/internal/core"
)

var (
	headerColor  = lipgloss.Color("#F780FF")
	stageColor   = lipgloss.Color("#BD93F9")
	textColor    = lipgloss.Color("#E9E9F4")
	mutedColor   = lipgloss.Color("#6272A4")
	errorColor   = lipgloss.Color("#FF5555")
	warnColor    = lipgloss.Color("#FFB86C")
	successColor = lipgloss.Color("#50FA7B")

	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	stageStyle   = lipgloss.NewStyle().Foreground(stageColor).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(textColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)

	blockStyle = lipgloss.NewStyle().
			Foreground(textColor).
			PaddingLeft(2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(mutedColor)
)

// outcomeMessage is the user-facing line for a stage outcome. Each failure
// kind tells the user something different to do.
func outcomeMessage(stage core.Stage, kind core.OutcomeKind, attempts int) string {
	switch kind {
	case core.OutcomeSuccess:
		return successStyle.Render(fmt.Sprintf("✓ %s generated", stage)) +
			mutedStyle.Render(fmt.Sprintf(" (%d attempt%s)", attempts, plural(attempts)))
	case core.OutcomeTimeout:
		return errorStyle.Render(fmt.Sprintf("✗ %s: the request timed out.", stage)) +
			textStyle.Render(" Check your connection and try again.")
	case core.OutcomeSafetyRejected:
		return warnStyle.Render(fmt.Sprintf("! %s: the generated text was flagged by the safety filter.", stage)) +
			textStyle.Render(" Regenerate or edit the storyline.")
	default:
		return errorStyle.Render(fmt.Sprintf("✗ %s: no usable text after %d attempts.", stage, attempts)) +
			textStyle.Render(" Try again, or rephrase the storyline.")
	}
}

func printOutcome[T any](w io.Writer, out core.Outcome[T]) {
	fmt.Fprintln(w, outcomeMessage(out.Stage, out.Kind, out.Attempts))
}

func printHeader(w io.Writer, text string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(text))
}

func printBlock(w io.Writer, label, text string) {
	fmt.Fprintln(w, stageStyle.Render(label))
	fmt.Fprintln(w, blockStyle.Render(text))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
