// Package tui provides the interactive terminal UI for kakitori.
package tui

import "github.com/charmbracelet/lipgloss"

// Notebook palette: sumi ink on paper, red pen for marks.
var (
	inkColor    = lipgloss.Color("#E5E7EB")
	redPenColor = lipgloss.Color("#DC2626")
	paperColor  = lipgloss.Color("#FEF3C7")
	faintColor  = lipgloss.Color("#6B7280")
	ruleColor   = lipgloss.Color("#7F1D1D")
	shadowColor = lipgloss.Color("#111827")
)

var (
	menuStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(ruleColor).
			Padding(1, 1)

	menuTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(redPenColor).
			Padding(0, 1).
			MarginBottom(1)

	menuItemStyle = lipgloss.NewStyle().
			Foreground(faintColor).
			Padding(0, 1)

	// The selected entry looks like a paper tab.
	menuItemActiveStyle = menuItemStyle.
				Bold(true).
				Foreground(shadowColor).
				Background(paperColor)

	menuFooterStyle = menuItemStyle.MarginTop(1)

	mainStyle = lipgloss.NewStyle().Padding(1, 2)
)

var (
	helpHeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(redPenColor)
	helpGroupStyle   = lipgloss.NewStyle().Bold(true).Foreground(paperColor).MarginTop(1)
	helpKeyStyle     = lipgloss.NewStyle().Foreground(redPenColor).Width(12)
	helpTextStyle    = lipgloss.NewStyle().Foreground(inkColor)
	helpHintStyle    = lipgloss.NewStyle().Foreground(faintColor).Italic(true)

	helpFrameStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ruleColor).
			Padding(1, 2).
			Width(50)
)
