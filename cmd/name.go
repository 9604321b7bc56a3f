/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/serialmux"
	"github.com/spf13/cobra"
)

// nameCmd represents the name command
var nameCmd = &cobra.Command{
	Use:   "name <device> <suffix>",
	Short: "Print the virtual name derived from a device and a suffix",
	Long: `Print the name under which a virtual endpoint of <device> is exposed when it
is configured with <suffix> instead of an explicit name.

Example usage:
  serialmux name /dev/ttyS3 myapp    # prints /dev/ttyS3.myapp`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := serialmux.VirtualName(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nameCmd)
}
