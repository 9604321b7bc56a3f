package serialmux

import (
	"errors"
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Transport opens and configures the OS descriptors behind a link.
type Transport interface {
	// OpenDevice opens a physical serial device by path.
	OpenDevice(path string) (*os.File, error)
	// OpenPair allocates a pseudo-terminal pair. The primary side is kept by
	// the link, the secondary side is exposed at name for other processes.
	OpenPair(name string) (primary, secondary *os.File, err error)
	// Configure puts the descriptor in raw 8N1 mode at the given baud rate.
	Configure(fd int, baudRate int) error
	// Release undoes whatever OpenPair did to expose name, provided name
	// still leads to the secondary side at target.
	Release(name, target string) error
}

// UnixTransport is the Linux Transport: termios serial devices and
// /dev/ptmx pseudo-terminals.
type UnixTransport struct{}

var _ Transport = UnixTransport{}

// OpenDevice opens a device in non-blocking mode without becoming its
// controlling terminal
func (UnixTransport) OpenDevice(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}

// OpenPair opens a pty pair and symlinks name to the secondary side. A
// symlink at name whose target is gone is replaced. A symlink to a live
// terminal, or any other file there, is an error.
func (UnixTransport) OpenPair(name string) (*os.File, *os.File, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, nil, err
	}

	if err := clearStaleLink(name, tty.Name()); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, nil, err
	}

	if err := os.Symlink(tty.Name(), name); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, nil, classifyOpenError(err)
	}

	return ptmx, tty, nil
}

// clearStaleLink removes a symlink at name unless it still leads to a
// character device. ours is the secondary just allocated, which may reuse
// the number of a pty that went away.
func clearStaleLink(name, ours string) error {
	fi, err := os.Lstat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s: %w", name, ErrDeviceInUse)
	}

	target, err := os.Readlink(name)
	if err != nil {
		return err
	}
	if target != ours {
		if ti, err := os.Stat(name); err == nil && ti.Mode()&os.ModeCharDevice != 0 {
			return fmt.Errorf("%s links to %s: %w", name, target, ErrDeviceInUse)
		}
	}
	return os.Remove(name)
}

// Release removes the symlink created by OpenPair if it still points at
// target. A link replaced by someone else is left alone.
func (UnixTransport) Release(name, target string) error {
	fi, err := os.Lstat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	current, err := os.Readlink(name)
	if err != nil {
		return err
	}
	if current != target {
		return nil
	}
	return os.Remove(name)
}

// Configure configures the descriptor using clean unix package calls
func (UnixTransport) Configure(fd int, baudRate int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode, 8N1
	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// VMIN=1 keeps a non-blocking read with no data at EAGAIN instead of 0
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	baud, err := getBaudRate(baudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// classifyOpenError maps errno values to the package's open failure causes
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %w", ErrDeviceInUse, err)
	default:
		return err
	}
}
