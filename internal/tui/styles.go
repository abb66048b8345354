package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#CE3DF3")
	colorMuted  = lipgloss.Color("#A8B3CF")
	colorError  = lipgloss.Color("#E04337")
	colorOK     = lipgloss.Color("#39E58C")

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle    = lipgloss.NewStyle().Foreground(colorError)
	toastStyle   = lipgloss.NewStyle().Foreground(colorOK)
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Background(colorAccent).
			Foreground(lipgloss.Color("#FFFFFF"))
	buttonDisabledStyle = buttonStyle.
				Background(lipgloss.Color("#3F4654")).
				Foreground(colorMuted)
)
