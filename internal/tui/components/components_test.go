package components

import (
	"errors"
	"testing"
	"time"

	"github.com/allbin/serialmux"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        uint64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, test := range tests {
		if got := FormatBytes(test.n); got != test.expected {
			t.Errorf("FormatBytes(%d) = %q, expected %q", test.n, got, test.expected)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]serialmux.NodeStatus{
		{Flags: serialmux.FlagMaster, State: serialmux.StateReady, Paused: true},
		{Flags: serialmux.FlagVirtual, State: serialmux.StateReady},
		{Flags: serialmux.FlagVirtual | serialmux.FlagWriter, State: serialmux.StateFailed},
		{Flags: serialmux.FlagMaster, State: serialmux.StateUnconnected},
	})
	require.Equal(t, Summary{Masters: 2, Virtuals: 2, Ready: 2, Failed: 1, Paused: 1}, s)
}

func TestDataFormatter(t *testing.T) {
	ts := time.Date(2025, 1, 2, 13, 14, 15, 678_000_000, time.UTC)
	msg := DataMsg{Timestamp: ts, Data: []byte("OK\r\n")}

	line := NewDataFormatter(DisplayMode{ShowHex: true, ShowASCII: true, ShowTimestamps: true}).Format(msg)
	require.Contains(t, line, "13:14:15.678")
	require.Contains(t, line, "RX")
	require.Contains(t, line, "HEX: 4F 4B 0D 0A")
	require.Contains(t, line, "ASCII: OK..")

	line = NewDataFormatter(DisplayMode{}).Format(msg)
	require.NotContains(t, line, "13:14:15")
	require.Contains(t, line, "BYTES: 4")

	tx := DataMsg{Timestamp: ts, Data: []byte{0x1b, '['}, IsTX: true, Err: errors.New("link closed")}
	line = NewDataFormatter(DisplayMode{ShowASCII: true}).Format(tx)
	require.Contains(t, line, "TX ✗")
	require.Contains(t, line, "ASCII: .[")
	require.Contains(t, line, "ERROR: link closed")
}

func TestNodeTable_Selected(t *testing.T) {
	nt := NewNodeTable()
	_, ok := nt.Selected()
	require.False(t, ok)
	require.Contains(t, nt.View(), "No nodes configured")

	nt.SetSize(160, 20)
	nt.SetNodes([]serialmux.NodeStatus{
		{ID: 7, Name: "/dev/ttyUSB0", Flags: serialmux.FlagMaster, State: serialmux.StateReady},
	})
	node, ok := nt.Selected()
	require.True(t, ok)
	require.Equal(t, serialmux.NodeID(7), node.ID)
	require.Contains(t, nt.View(), "/dev/ttyUSB0")
}
