/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allbin/serialmux"
	"golang.org/x/sys/unix"
)

// openClient opens a serial port, real or virtual, the way a program using
// serialmux would: raw 8N1 at baud. The file stays on the runtime poller so
// Close unblocks a pending Read.
func openClient(path string, baud int) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	var cerr error
	err = rc.Control(func(fd uintptr) {
		cerr = serialmux.UnixTransport{}.Configure(int(fd), baud)
	})
	if err == nil {
		err = cerr
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}
	return f, nil
}

// parseHexString decodes hex input such as "48 65 6c" or "0x48656C"
func parseHexString(hexStr string) ([]byte, error) {
	// Remove common hex prefixes and whitespace
	hexStr = strings.Join(strings.Fields(hexStr), "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	return hex.DecodeString(hexStr)
}

func printField(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "  %s %s\n", label, value)
	}
}
