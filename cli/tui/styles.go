// Package tui provides the Bubble Tea view behind `crucible watch`: a
// live, read-only board of job lifecycle messages. It renders the same
// JSON payloads the worker publishes; nothing here feeds back into the
// pipeline.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for the watch board.
var (
	// TitleStyle for the board header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for secondary row text (handler, task).
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// ValueStyle for primary row text.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for finished jobs.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// RunningStyle for jobs without a terminal status yet.
	RunningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for failed jobs.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// StatBoxStyle for the counter boxes above the job rows.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(14).
			Align(lipgloss.Center)

	// StatLabelStyle for counter box labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for counter box values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// StateStyle returns the style for a job state.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "success":
		return SuccessStyle
	case "failure":
		return ErrorStyle
	case "running":
		return RunningStyle
	default:
		return ValueStyle
	}
}
