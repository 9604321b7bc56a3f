package serialmux

// Poller is the readiness driver the core registers descriptors with. The
// driver reports a ready descriptor by calling Registry.OnReadable for the
// node registered with it.
type Poller interface {
	// Register adds read interest for fd on behalf of node id.
	Register(fd int, id NodeID) error
	// Deregister removes any interest for fd.
	Deregister(fd int) error
}
