package cli

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("#2E7D32")
	mutedColor   = lipgloss.Color("#626262")
	errorColor   = lipgloss.Color("#FF6B6B")
	successColor = lipgloss.Color("#73F59F")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	cellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(20)
)
