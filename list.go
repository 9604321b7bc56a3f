package serialmux

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// Communication-capable serial devices
	portPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
		regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
		regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
		regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
		regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
		regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
		regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	}

	// Virtual terminals and other non-serial devices
	excludePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^tty\d+$`),
		regexp.MustCompile(`^console$`),
		regexp.MustCompile(`^ptmx$`),
		regexp.MustCompile(`^pty.*$`),
		regexp.MustCompile(`^pts/.*$`),
	}
)

// sysClassTTY is where the kernel describes tty devices
var sysClassTTY = "/sys/class/tty"

// ListPorts returns the serial devices under /dev that can be used as
// masters. Virtual terminals and pseudo-terminals are excluded.
func ListPorts() ([]string, error) {
	return listPorts("/dev")
}

func listPorts(devDir string) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !isSerialName(name) {
			continue
		}
		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

func isSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range portPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial device. The USB fields are empty for
// devices not attached over USB.
type PortInfo struct {
	Name        string
	Path        string
	Description string

	VendorID        string
	ProductID       string
	SerialNumber    string
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
	Manufacturer    string
	Product         string
}

// IsUSB reports whether USB metadata was found for the port
func (p *PortInfo) IsUSB() bool {
	return p.VendorID != "" || p.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port. A
// symlink such as an exposed virtual name is described by its target.
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	if target, err := filepath.EvalSymlinks(portPath); err == nil {
		name = filepath.Base(target)
	}

	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info, filepath.Join(sysClassTTY, name, "device"))
	}
	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills the USB fields from sysfs. deviceDir is the tty's
// device link, which resolves to the USB interface; the device attributes
// live in one of its parents.
func enrichUSBInfo(info *PortInfo, deviceDir string) {
	dir, err := filepath.EvalSymlinks(deviceDir)
	if err != nil {
		return
	}

	info.InterfaceNumber = readSysfs(dir, "bInterfaceNumber")

	// usb-serial drivers put the tty one level below the interface
	for range 3 {
		if readSysfs(dir, "idVendor") != "" {
			break
		}
		dir = filepath.Dir(dir)
		if info.InterfaceNumber == "" {
			info.InterfaceNumber = readSysfs(dir, "bInterfaceNumber")
		}
	}

	info.VendorID = readSysfs(dir, "idVendor")
	if info.VendorID == "" {
		return
	}
	info.ProductID = readSysfs(dir, "idProduct")
	info.SerialNumber = readSysfs(dir, "serial")
	info.BusNumber = readSysfs(dir, "busnum")
	info.DeviceNumber = readSysfs(dir, "devnum")
	info.Manufacturer = readSysfs(dir, "manufacturer")
	info.Product = readSysfs(dir, "product")
}

func readSysfs(dir, attr string) string {
	data, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
