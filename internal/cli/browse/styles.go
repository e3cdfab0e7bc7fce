package browse

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	primaryColor = lipgloss.Color("#2E7D32") // Leaf green
	accentColor  = lipgloss.Color("#81C784") // Light green
	errorColor   = lipgloss.Color("#FF6B6B") // Red
	warningColor = lipgloss.Color("#FFE066") // Yellow
	mutedColor   = lipgloss.Color("#626262") // Gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	filterStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	filterLabelStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#1B3A1F")).
				Bold(true).
				Padding(0, 1)

	outOfStockStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	loadingStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)
