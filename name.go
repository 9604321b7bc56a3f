package serialmux

import "golang.org/x/sys/unix"

// NameMax is the capacity of a node name, terminator included.
const NameMax = unix.PathMax

// VirtualName returns the name of a virtual endpoint for device, ie.
// "/dev/ttyS3" and "myapp" give "/dev/ttyS3.myapp".
func VirtualName(device, suffix string) (string, error) {
	return VirtualNameN(device, suffix, NameMax)
}

// VirtualNameN is VirtualName with an explicit name capacity. The capacity
// reserves one byte for a terminator, so the name may hold capacity-1 bytes.
func VirtualNameN(device, suffix string, capacity int) (string, error) {
	name := device + "." + suffix
	if len(name) > capacity-1 {
		return "", ErrNameTooLong
	}
	return name, nil
}
