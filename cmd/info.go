/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/serialmux"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialmux info /dev/ttyUSB0
  serialmux info /dev/ttyS1.modem

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs. When the port
is a configured master, the virtual endpoints it is exposed as are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		info, err := serialmux.GetPortInfo(portPath)
		if err != nil {
			return fmt.Errorf("%s: %w", portPath, err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
		fmt.Fprintf(w, "  Name:        %s\n", info.Name)
		fmt.Fprintf(w, "  Description: %s\n", info.Description)

		// USB Device Information
		if info.IsUSB() {
			fmt.Fprintln(w, "\nUSB Device Information:")
			printField(w, "Vendor ID:   ", info.VendorID)
			printField(w, "Product ID:  ", info.ProductID)
			printField(w, "Serial:      ", info.SerialNumber)
			printField(w, "Interface:   ", info.InterfaceNumber)
			printField(w, "Bus:         ", info.BusNumber)
			printField(w, "Device:      ", info.DeviceNumber)
			printField(w, "Manufacturer:", info.Manufacturer)
			printField(w, "Product:     ", info.Product)
		}

		// the port details are useful without a configuration
		cfg, err := loadConfig()
		if err != nil {
			return nil
		}
		if names := cfg.Virtuals(portPath); names != nil {
			fmt.Fprintln(w, "\nVirtual Endpoints:")
			for _, name := range names {
				fmt.Fprintf(w, "  %s\n", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
