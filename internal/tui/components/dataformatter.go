package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialmux/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// DataMsg is a chunk of bytes seen on a port
type DataMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Err       error // TX only
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) Mode() DisplayMode {
	return df.mode
}

// Format renders msg as one line: timestamp, direction and the data in the
// enabled representations
func (df *DataFormatter) Format(msg DataMsg) string {
	var indicator string
	if msg.IsTX {
		txColor, statusText := colors.Green, "TX ✓"
		if msg.Err != nil {
			txColor, statusText = colors.Red, "TX ✗"
		}
		indicator = lipgloss.NewStyle().
			Foreground(txColor).
			Bold(true).
			Render("↗ " + statusText)
	} else {
		indicator = lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printable(msg.Data))
	}
	// If both are disabled, show raw bytes count
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}
	if msg.Err != nil {
		parts = append(parts, "ERROR: "+msg.Err.Error())
	}

	line := fmt.Sprintf("%s: %s", indicator, strings.Join(parts, "  "))
	if !df.mode.ShowTimestamps {
		return line
	}
	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render("[" + msg.Timestamp.Format("15:04:05.000") + "]")
	return timestamp + " " + line
}

// printable replaces everything outside printable ASCII with dots so data
// cannot inject terminal control sequences
func printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
