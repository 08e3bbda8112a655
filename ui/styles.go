package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	noteFg      = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	pastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"})

	futureStyle = lipgloss.NewStyle()

	titleStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Background(darkGreen).
			Padding(0, 1).
			Render

	statusBarStyle = lipgloss.NewStyle().
			Foreground(noteFg).
			Background(statusBarBg).
			Render
)

// activeStyle returns the highlight for the word being spoken.
func activeStyle(color string) lipgloss.Style {
	if color == "" {
		color = "226"
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color("0")).
		Bold(true)
}

// truncate cuts s to width cells.
func truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
