package components

import (
	"fmt"

	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Summary counts the nodes of a snapshot
type Summary struct {
	Masters  int
	Virtuals int
	Ready    int
	Failed   int
	Paused   int
}

// Summarize counts nodes by role and state
func Summarize(nodes []serialmux.NodeStatus) Summary {
	var s Summary
	for _, n := range nodes {
		if n.Flags&serialmux.FlagMaster != 0 {
			s.Masters++
		} else {
			s.Virtuals++
		}
		switch n.State {
		case serialmux.StateReady:
			s.Ready++
		case serialmux.StateFailed:
			s.Failed++
		}
		if n.Paused {
			s.Paused++
		}
	}
	return s
}

type StatusBar struct {
	title   string
	source  string
	err     error
	width   int
	summary Summary
}

func NewStatusBar(title, source string) *StatusBar {
	if source == "" {
		source = "no config file"
	}
	return &StatusBar{
		title:  title,
		source: source,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetSummary(s Summary) {
	sb.summary = s
}

// SetError shows err until it is cleared with nil
func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

// View renders the status bar: title, config source and overall health on
// the left, node counts and timestamp on the right
func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	// Section 1: Title badge
	title := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1).
		Render(sb.title)

	// Section 2: Config source
	source := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.source)

	// Section 3: Overall health
	total := sb.summary.Masters + sb.summary.Virtuals
	var indicator string
	var indicatorStyle lipgloss.Style
	switch {
	case sb.err != nil || sb.summary.Failed > 0:
		indicatorStyle = lipgloss.NewStyle().Foreground(colors.Red)
		indicator = "✗"
	case total > 0 && sb.summary.Ready == total:
		indicatorStyle = lipgloss.NewStyle().Foreground(colors.Green)
		indicator = "●"
	default:
		indicatorStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
		indicator = "○"
	}
	health := indicatorStyle.Render(indicator)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	var errInfo string
	if sb.err != nil {
		errInfo = lipgloss.NewStyle().
			Foreground(colors.Red).
			Padding(0, 1).
			Render(sb.err.Error())
	}

	// Section 4: Counts
	counts := fmt.Sprintf("⚡ %d masters %d virtuals %d/%d ready",
		sb.summary.Masters, sb.summary.Virtuals, sb.summary.Ready, total)
	if sb.summary.Paused > 0 {
		counts += fmt.Sprintf(" %d paused", sb.summary.Paused)
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(counts)

	// Section 5: Timestamp
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, title, source, health, errInfo, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
