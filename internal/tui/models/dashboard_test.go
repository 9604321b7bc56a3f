package models

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/serialmux"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu         sync.Mutex
	nodes      []serialmux.NodeStatus
	toggled    []serialmux.NodeID
	reconnects []serialmux.NodeID
}

func (f *fakeController) Snapshot() []serialmux.NodeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]serialmux.NodeStatus(nil), f.nodes...)
}

func (f *fakeController) ToggleWriter(id serialmux.NodeID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggled = append(f.toggled, id)
}

func (f *fakeController) Reconnect(id serialmux.NodeID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects = append(f.reconnects, id)
}

func newFakeController() *fakeController {
	return &fakeController{nodes: []serialmux.NodeStatus{
		{ID: 1, Name: "/dev/ttyS1", Flags: serialmux.FlagMaster, BaudRate: 9600, State: serialmux.StateReady, Virtuals: 2},
		{ID: 2, Name: "/dev/ttyS1.modem", Flags: serialmux.FlagVirtual | serialmux.FlagWriter, BaudRate: 9600, State: serialmux.StateReady, Master: "/dev/ttyS1", Exposed: "/dev/pts/3"},
		{ID: 3, Name: "/dev/ttyS1.logger", Flags: serialmux.FlagVirtual, BaudRate: 9600, State: serialmux.StateFailed, Master: "/dev/ttyS1"},
	}}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func refreshed(t *testing.T, ctrl Controller) *Dashboard {
	t.Helper()
	m := NewDashboard(ctrl, "/etc/serialmux/serialmux.yaml", time.Second)
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 30})
	_, cmd := m.Update(refreshMsg(time.Now()))
	require.NotNil(t, cmd, "refresh schedules the next one")
	return m
}

func TestDashboard_View(t *testing.T) {
	m := refreshed(t, newFakeController())

	view := m.View()
	require.Contains(t, view, "/dev/ttyS1.modem")
	require.Contains(t, view, "writer")
	require.Contains(t, view, "failed")
	require.Contains(t, view, "/dev/pts/3")
	require.Contains(t, view, "1 masters 2 virtuals 2/3 ready")
}

func TestDashboard_ToggleWriter(t *testing.T) {
	ctrl := newFakeController()
	m := refreshed(t, ctrl)

	// the first row is the master
	m.Update(keyRune('w'))
	require.Empty(t, ctrl.toggled)
	require.Contains(t, m.View(), "is a master")

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(keyRune('w'))
	require.Equal(t, []serialmux.NodeID{3}, ctrl.toggled)
	require.NotContains(t, m.View(), "is a master")
}

func TestDashboard_Reconnect(t *testing.T) {
	ctrl := newFakeController()
	m := refreshed(t, ctrl)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(keyRune('r'))
	require.Equal(t, []serialmux.NodeID{2}, ctrl.reconnects)
}

func TestDashboard_KeepsSelectionAcrossRefresh(t *testing.T) {
	ctrl := newFakeController()
	m := refreshed(t, ctrl)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(refreshMsg(time.Now()))
	node, ok := m.table.Selected()
	require.True(t, ok)
	require.Equal(t, serialmux.NodeID(2), node.ID)

	// a shrinking snapshot clamps the selection
	ctrl.nodes = ctrl.nodes[:1]
	m.Update(refreshMsg(time.Now()))
	node, ok = m.table.Selected()
	require.True(t, ok)
	require.Equal(t, serialmux.NodeID(1), node.ID)
}

func TestDashboard_Quit(t *testing.T) {
	m := refreshed(t, newFakeController())

	_, cmd := m.Update(keyRune('q'))
	require.True(t, isQuit(cmd))

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.True(t, isQuit(cmd))
}

func TestDashboard_Stopped(t *testing.T) {
	m := refreshed(t, newFakeController())

	stopErr := errors.New("epoll wait: bad file descriptor")
	_, cmd := m.Update(StoppedMsg{Err: stopErr})
	require.True(t, isQuit(cmd))
	require.ErrorIs(t, m.Err(), stopErr)
}

func TestDashboard_Help(t *testing.T) {
	m := refreshed(t, newFakeController())

	require.NotContains(t, m.View(), "toggle writer")
	m.Update(keyRune('?'))
	require.True(t, strings.Contains(m.View(), "toggle writer"))
}
