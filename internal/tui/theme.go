package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	Title         lipgloss.Style
	Indicator     lipgloss.Style
	Display       lipgloss.Style
	Panel         lipgloss.Style
	Button        lipgloss.Style
	ButtonOp      lipgloss.Style
	ButtonFocused lipgloss.Style
	Muted         lipgloss.Style
	Accent        lipgloss.Style
	Danger        lipgloss.Style
	Modal         lipgloss.Style

	StarDim    lipgloss.Style
	StarMid    lipgloss.Style
	StarBright lipgloss.Style
	Glow       [3]lipgloss.Style
}

func defaultTheme() theme {
	sky := lipgloss.Color("#38BDF8")
	gray := lipgloss.Color("#7D7D7D")
	ink := lipgloss.Color("#0F172A")
	red := lipgloss.Color("#FF0055")

	return theme{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(sky),
		Indicator: lipgloss.NewStyle().Bold(true).Foreground(ink).Background(sky).Padding(0, 1),
		Display: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gray).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Align(lipgloss.Right),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(sky).
			Background(ink).
			Padding(0, 1),
		Button:        lipgloss.NewStyle().Foreground(lipgloss.Color("#E2E8F0")).Align(lipgloss.Center),
		ButtonOp:      lipgloss.NewStyle().Foreground(sky).Align(lipgloss.Center),
		ButtonFocused: lipgloss.NewStyle().Foreground(ink).Background(sky).Bold(true).Align(lipgloss.Center),
		Muted:         lipgloss.NewStyle().Foreground(gray),
		Accent:        lipgloss.NewStyle().Foreground(sky),
		Danger:        lipgloss.NewStyle().Foreground(red),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(sky).
			Background(ink).
			Padding(1, 2),

		StarDim:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563")),
		StarMid:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		StarBright: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")),
		Glow: [3]lipgloss.Style{
			lipgloss.NewStyle().Background(lipgloss.Color("#0B1A2A")),
			lipgloss.NewStyle().Background(lipgloss.Color("#0E2236")),
			lipgloss.NewStyle().Background(lipgloss.Color("#12304A")),
		},
	}
}
