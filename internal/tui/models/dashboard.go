package models

import (
	"fmt"
	"time"

	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/tui/components"
	"github.com/allbin/serialmux/internal/tui/keys"
	"github.com/allbin/serialmux/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the running daemon as seen from the dashboard
type Controller interface {
	Snapshot() []serialmux.NodeStatus
	ToggleWriter(id serialmux.NodeID)
	Reconnect(id serialmux.NodeID)
}

// StoppedMsg tells the dashboard that the daemon has stopped
type StoppedMsg struct {
	Err error
}

type refreshMsg time.Time

// Dashboard shows the node graph of a running daemon and refreshes it on a
// fixed interval
type Dashboard struct {
	ctrl     Controller
	interval time.Duration

	table     *components.NodeTable
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.DashboardKeys

	now time.Time
	err error
}

func NewDashboard(ctrl Controller, source string, interval time.Duration) *Dashboard {
	return &Dashboard{
		ctrl:      ctrl,
		interval:  interval,
		table:     components.NewNodeTable(),
		statusBar: components.NewStatusBar("serialmux", source),
		help:      help.New(),
		keys:      keys.NewDashboardKeys(),
		now:       time.Now(),
	}
}

// Err returns the error the daemon stopped with, if any
func (m *Dashboard) Err() error {
	return m.err
}

func (m *Dashboard) Init() tea.Cmd {
	return func() tea.Msg { return refreshMsg(time.Now()) }
}

func (m *Dashboard) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Status bar is single line
		m.table.SetSize(msg.Width, msg.Height-1)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.now = time.Time(msg)
		nodes := m.ctrl.Snapshot()
		m.table.SetNodes(nodes)
		m.statusBar.SetSummary(components.Summarize(nodes))
		return m, m.tick()

	case StoppedMsg:
		m.err = msg.Err
		m.statusBar.SetError(msg.Err)
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.ToggleWriter):
			node, ok := m.table.Selected()
			if !ok {
				return m, nil
			}
			if node.Flags&serialmux.FlagVirtual == 0 {
				m.statusBar.SetError(fmt.Errorf("%w: %s is a master", serialmux.ErrWrongRole, node.Name))
				return m, nil
			}
			m.statusBar.SetError(nil)
			m.ctrl.ToggleWriter(node.ID)
			return m, nil

		case key.Matches(msg, m.keys.Reconnect):
			if node, ok := m.table.Selected(); ok {
				m.statusBar.SetError(nil)
				m.ctrl.Reconnect(node.ID)
			}
			return m, nil
		}
	}

	return m, m.table.Update(msg)
}

func (m *Dashboard) View() string {
	statusBar := m.statusBar.View(m.now.Format("15:04:05"))

	if m.help.ShowAll {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.table.View(),
			styles.HelpStyle.Render(m.help.View(m.keys)),
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.table.View(),
		statusBar,
	)
}
