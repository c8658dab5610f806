package ui

import "github.com/charmbracelet/lipgloss"

var (
	cream       = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	fuchsia     = lipgloss.Color("#EE6FF8")
	yellowGreen = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}
	red         = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	gray        = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	groupStyle = lipgloss.NewStyle().
			Foreground(yellowGreen).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(fuchsia).
			PaddingLeft(1)

	itemStyle = lipgloss.NewStyle().PaddingLeft(2)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(red).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().Foreground(gray)
)
