package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#7C3AED") // violet
	Success = lipgloss.Color("#22C55E") // green
	Warning = lipgloss.Color("#F59E0B") // amber
	Error   = lipgloss.Color("#EF4444") // red
	Muted   = lipgloss.Color("#6B7280") // gray
	Text    = lipgloss.Color("#E5E7EB") // light gray

	// Component styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	StatusBar = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)
