// Package serialmux shares one physical serial device among several virtual
// pseudo-terminal endpoints, with at most one virtual at a time allowed to
// transmit toward the device.
//
// The package keeps the node graph and the link state machine. It does not
// poll: a readiness driver registers with it through the Poller interface and
// calls back into the Registry whenever a descriptor becomes readable.
//
// # Basic Usage
//
// Build a master with two virtuals, one of them the writer:
//
//	reg, err := serialmux.NewRegistry(loop)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	master, _ := reg.CreateNode("/dev/ttyS1", serialmux.FlagMaster)
//	reg.SetBaudRate(master, 9600)
//	reg.AddNode(master)
//
//	name, _ := serialmux.VirtualName("/dev/ttyS1", "modem")
//	modem, _ := reg.CreateNode(name, serialmux.FlagVirtual|serialmux.FlagWriter)
//	reg.SetBaudRate(modem, 9600)
//	reg.AddVirtualNode(master, modem)
//
//	reg.ConnectNode(master)
//	reg.ConnectNode(modem) // /dev/ttyS1.modem now links to a /dev/pts/N
//
// # Event Feed
//
// When the driver sees a registered descriptor become readable it calls
// OnReadable for the node and then drains the receive buffer:
//
//	if _, err := reg.OnReadable(node); errors.Is(err, serialmux.ErrIOError) {
//	    reg.DisconnectNode(node)
//	    return
//	}
//	reg.DrainTo(node, func(p []byte) (int, error) {
//	    return target.Link().Write(p)
//	})
//
// A receive buffer that fills up drops read interest for its descriptor
// until DrainTo frees space, so a slow consumer never grows memory.
//
// # Error Handling
//
// Errors are sentinel values checked with errors.Is:
//
//	var (
//	    ErrInvalidConfig, ErrNameTooLong, ErrDuplicateName   // caller mistakes
//	    ErrWrongRole, ErrAlreadyAssociated, ErrNotAssociated // graph rules
//	    ErrHasVirtuals, ErrWriterConflict, ErrNotFound
//	    ErrOpenFailed, ErrConfigureFailed, ErrIOError        // transport
//	    ErrLinkClosed, ErrAlreadyConnected
//	)
//
// # Platform Support
//
// Linux only: masters are configured through termios and virtuals are
// allocated from /dev/ptmx.
package serialmux
