/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/config"
	"github.com/allbin/serialmux/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// portKind classifies ports by the prefix of their device name
type portKind struct {
	prefix string
	label  string
	filter string
}

// Longer prefixes first, ttyS would otherwise swallow ttySAC
var portKinds = []portKind{
	{"ttyusb", "USB Serial", "usb"},
	{"ttyacm", "USB CDC/ACM", "usb"},
	{"ttyama", "ARM Serial", "arm"},
	{"ttymxc", "i.MX Serial", ""},
	{"ttysac", "Samsung Serial", ""},
	{"ttyths", "Tegra Serial", ""},
	{"ttyo", "OMAP Serial", ""},
	{"ttys", "Standard Serial", "standard"},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports that can be used as masters",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing. With
--table, ports configured as masters are marked with their virtual count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialmux.ListPorts()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		out := cmd.OutOrStdout()
		ports = filterPorts(ports, filterType)
		if len(ports) == 0 {
			if filterType != "" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if !tableFormat {
			for _, port := range ports {
				fmt.Fprintln(out, port)
			}
			return nil
		}

		// the listing works without a usable configuration
		cfg, _ := loadConfig()
		rows := make([][]string, 0, len(ports))
		for _, port := range ports {
			rows = append(rows, portRow(port, cfg))
		}
		renderTable(out, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func kindOf(name string) (portKind, bool) {
	name = strings.ToLower(name)
	for _, k := range portKinds {
		if strings.HasPrefix(name, k.prefix) {
			return k, true
		}
	}
	return portKind{}, false
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	if k, ok := kindOf(name); ok {
		return k.label
	}
	return "Serial Port"
}

// matchesFilter reports whether a port named name passes the --filter value
func matchesFilter(name, filterType string) bool {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return true
	}
	k, ok := kindOf(name)
	return ok && k.filter == filterType
}

func filterPorts(ports []string, filterType string) []string {
	var filtered []string
	for _, port := range ports {
		name := port
		if info, err := serialmux.GetPortInfo(port); err == nil {
			name = info.Name
		}
		if matchesFilter(name, filterType) {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

// portRow describes port in the columns of renderTable
func portRow(port string, cfg *config.Config) []string {
	info, err := serialmux.GetPortInfo(port)
	if err != nil {
		return []string{port, "Unknown", "", "", "Error: " + err.Error()}
	}

	usbID := ""
	desc := info.Description
	if info.IsUSB() {
		usbID = info.VendorID + ":" + info.ProductID
		if info.Product != "" {
			desc = info.Product
		}
	}
	return []string{info.Name, getPortType(info.Name), usbID, muxStatus(cfg, port), desc}
}

// muxStatus describes how the configuration uses port
func muxStatus(cfg *config.Config, port string) string {
	if cfg == nil {
		return ""
	}
	names := cfg.Virtuals(port)
	if names == nil {
		return "-"
	}
	return fmt.Sprintf("master (%d)", len(names))
}

func renderTable(w io.Writer, rows [][]string) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(rows))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.BorderStyle).
		Headers("Port", "Type", "USB ID", "Mux", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle
			}
			return styles.CellStyle
		})
	fmt.Fprintln(w, t.Render())
}
