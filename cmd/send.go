/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/serialmux/internal/tui/components"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Send data to a serial port",
	Long: `Send one message to a serial port, typically the writer endpoint exposed by a
running serialmux. Data sent to a virtual endpoint without the writer role is
dropped by serialmux.

Data can be provided as:
- Command line argument: serialmux send /dev/ttyS1.modem "AT"
- From stdin (pipe): echo "AT" | serialmux send /dev/ttyS1.modem

Example usage:
  serialmux send /dev/ttyS1.modem "AT+GMR" --newline
  serialmux send /dev/ttyS1.modem "41 54 0d" --hex`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		} else {
			stdinData, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			data = []byte(strings.TrimRight(string(stdinData), "\r\n"))
		}

		baudRate, _ := cmd.Flags().GetInt("baud")
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if hexMode {
			decoded, err := parseHexString(string(data))
			if err != nil {
				return fmt.Errorf("invalid hex data: %w", err)
			}
			data = decoded
		} else if addNewline {
			data = append(data, '\n')
		}

		port, err := openClient(portPath, baudRate)
		if err != nil {
			return err
		}
		defer port.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		n, err := send(ctx, port, data)
		formatter := components.NewDataFormatter(components.DisplayMode{ShowHex: true, ShowASCII: true})
		fmt.Fprintln(cmd.OutOrStdout(), formatter.Format(components.DataMsg{
			Timestamp: time.Now(),
			Data:      data[:n],
			IsTX:      true,
			Err:       err,
		}))
		return err
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for sending data")
}

// send writes data to port, giving up when ctx is done
func send(ctx context.Context, port *os.File, data []byte) (int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := port.SetWriteDeadline(deadline); err != nil {
			return 0, err
		}
	}
	stop := context.AfterFunc(ctx, func() {
		port.SetWriteDeadline(time.Now())
	})
	defer stop()

	return port.Write(data)
}
