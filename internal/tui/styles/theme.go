package styles

import (
	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Table styles
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Text).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext1).
			Padding(0, 1)

	BorderStyle = lipgloss.NewStyle().
			Foreground(colors.Surface2)

	// Status styles
	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusConnectingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay1)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red).
			Align(lipgloss.Center)

	// Info styles
	InfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Align(lipgloss.Center)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)
)

// StateStyle returns the style a node in state s is rendered with
func StateStyle(s serialmux.State) lipgloss.Style {
	switch s {
	case serialmux.StateReady:
		return StatusConnectedStyle
	case serialmux.StateOpening, serialmux.StateConfigured:
		return StatusConnectingStyle
	case serialmux.StateFailed:
		return StatusDisconnectedStyle
	default:
		return StatusIdleStyle
	}
}

// StateIndicator returns the single character marker of state s
func StateIndicator(s serialmux.State) string {
	switch s {
	case serialmux.StateReady:
		return "●"
	case serialmux.StateFailed:
		return "✗"
	default:
		return "○"
	}
}
