/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/serialmux/internal/tui/components"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Print data arriving on a serial port",
	Long: `Open a serial port, typically a virtual endpoint exposed by a running
serialmux, and print everything that arrives on it until interrupted.

Each read is printed on one line with a timestamp, as hex and as ASCII with
non-printable bytes shown as dots.

Example usage:
  serialmux listen /dev/ttyS1.logger
  serialmux listen /dev/ttyS1.logger --baud 9600 --no-hex
  serialmux listen /dev/ttyUSB0 --raw > capture.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		baudRate, _ := cmd.Flags().GetInt("baud")
		noHex, _ := cmd.Flags().GetBool("no-hex")
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		rawMode, _ := cmd.Flags().GetBool("raw")

		port, err := openClient(portPath, baudRate)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var formatter *components.DataFormatter
		if !rawMode {
			formatter = components.NewDataFormatter(components.DisplayMode{
				ShowHex:        !noHex,
				ShowASCII:      true,
				ShowTimestamps: !noTimestamps,
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s at %d baud, Ctrl+C to stop\n", portPath, baudRate)
		}
		return listen(ctx, port, cmd.OutOrStdout(), formatter)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	listenCmd.Flags().Bool("no-hex", false, "Hide the hex representation")
	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("raw", false, "Copy the bytes to stdout unformatted")
}

// listen copies port to w until ctx is done or the port fails, formatting
// each read with formatter unless it is nil. port is closed on return.
func listen(ctx context.Context, port *os.File, w io.Writer, formatter *components.DataFormatter) error {
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer port.Close()

	buf := make([]byte, 4096)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if formatter == nil {
				if _, werr := w.Write(buf[:n]); werr != nil {
					return werr
				}
			} else {
				fmt.Fprintln(w, formatter.Format(components.DataMsg{
					Timestamp: time.Now(),
					Data:      buf[:n],
				}))
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			// a virtual endpoint reads EIO once serialmux goes away
			return fmt.Errorf("read %s: %w", port.Name(), err)
		}
	}
}
