package components

import (
	"fmt"
	"strconv"

	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/tui/colors"
	"github.com/allbin/serialmux/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyID       = "id"
	columnKeyName     = "name"
	columnKeyRole     = "role"
	columnKeyState    = "state"
	columnKeyBaud     = "baud"
	columnKeyBuffered = "buffered"
	columnKeyRX       = "rx"
	columnKeyTX       = "tx"
	columnKeyTTY      = "tty"
)

// NodeTable lists the nodes of a registry snapshot, masters followed by
// their virtuals
type NodeTable struct {
	table table.Model
	nodes []serialmux.NodeStatus
	width int
}

func NewNodeTable() *NodeTable {
	columns := []table.Column{
		table.NewFlexColumn(columnKeyName, "Node", 3),
		table.NewColumn(columnKeyRole, "Role", 9),
		table.NewColumn(columnKeyState, "State", 14),
		table.NewColumn(columnKeyBaud, "Baud", 9),
		table.NewColumn(columnKeyBuffered, "Buffered", 10),
		table.NewColumn(columnKeyRX, "RX", 9),
		table.NewColumn(columnKeyTX, "TX", 9),
		table.NewFlexColumn(columnKeyTTY, "TTY", 1),
	}

	t := table.New(columns).
		Focused(true).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Text)).
		HighlightStyle(lipgloss.NewStyle().Background(colors.Surface1).Foreground(colors.Text)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(colors.Subtext1).BorderForeground(colors.Surface2).Align(lipgloss.Left))

	nt := &NodeTable{table: t}
	nt.SetSize(120, 20)
	return nt
}

// SetSize fits the table into width x height cells
func (nt *NodeTable) SetSize(width, height int) {
	if width < 60 {
		width = 60
	}
	// borders, header and pagination footer
	pageSize := height - 6
	if pageSize < 1 {
		pageSize = 1
	}
	nt.width = width
	nt.table = nt.table.WithTargetWidth(width).WithPageSize(pageSize)
}

// SetNodes replaces the rows with a new snapshot, keeping the highlighted
// row in place
func (nt *NodeTable) SetNodes(nodes []serialmux.NodeStatus) {
	nt.nodes = nodes

	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, nodeRow(n))
	}

	selected := nt.table.GetHighlightedRowIndex()
	nt.table = nt.table.WithRows(rows)
	if selected >= len(rows) {
		selected = len(rows) - 1
	}
	if selected >= 0 {
		nt.table = nt.table.WithHighlightedRow(selected)
	}
}

// Selected returns the highlighted node
func (nt *NodeTable) Selected() (serialmux.NodeStatus, bool) {
	if len(nt.nodes) == 0 {
		return serialmux.NodeStatus{}, false
	}
	id, ok := nt.table.HighlightedRow().Data[columnKeyID].(serialmux.NodeID)
	if !ok {
		return serialmux.NodeStatus{}, false
	}
	for _, n := range nt.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return serialmux.NodeStatus{}, false
}

func (nt *NodeTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	nt.table, cmd = nt.table.Update(msg)
	return cmd
}

func (nt *NodeTable) View() string {
	if len(nt.nodes) == 0 {
		return styles.InfoStyle.Width(nt.width).Render("No nodes configured")
	}
	return nt.table.View()
}

func nodeRow(n serialmux.NodeStatus) table.Row {
	name := n.Name
	role := "master"
	if n.Flags&serialmux.FlagVirtual != 0 {
		name = "└ " + n.Name
		role = "virtual"
		if n.Flags&serialmux.FlagWriter != 0 {
			role = "writer"
		}
	}

	state := n.State.String()
	if n.Paused {
		state += " (paused)"
	}

	buffered := "-"
	if n.State == serialmux.StateReady {
		buffered = strconv.Itoa(n.Buffered)
	}

	return table.NewRow(table.RowData{
		columnKeyID:       n.ID,
		columnKeyName:     name,
		columnKeyRole:     role,
		columnKeyState:    table.NewStyledCell(styles.StateIndicator(n.State)+" "+state, styles.StateStyle(n.State)),
		columnKeyBaud:     strconv.Itoa(n.BaudRate),
		columnKeyBuffered: buffered,
		columnKeyRX:       FormatBytes(n.RxBytes),
		columnKeyTX:       FormatBytes(n.TxBytes),
		columnKeyTTY:      n.Exposed,
	})
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
