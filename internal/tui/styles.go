package tui

import "github.com/charmbracelet/lipgloss"

var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	editFg    = lipgloss.Color("#22D3EE")
	selectFg  = lipgloss.Color("#FFA500")
	borderCol = lipgloss.Color("#243141")

	appStyle   = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(baseDimFg)
	editStyle  = lipgloss.NewStyle().Foreground(editFg)
	modeStyle  = lipgloss.NewStyle().Foreground(editFg).Bold(true)

	vertexMarker   = editStyle.Render("•")
	selectedMarker = lipgloss.NewStyle().Foreground(selectFg).Render("◯")
)
