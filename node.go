package serialmux

import "strings"

// NodeID identifies a node within a Registry. The zero value means no node.
type NodeID uint64

// Flags represents the role of a node
type Flags uint32

const (
	FlagMaster  Flags = 1 << iota // The node is a physical master device
	FlagVirtual                   // The node is a virtual endpoint of a master
	FlagWriter                    // The virtual may transmit toward its master
)

// String returns a readable form of the flag set, ie. "virtual|writer".
func (f Flags) String() string {
	var parts []string
	if f&FlagMaster != 0 {
		parts = append(parts, "master")
	}
	if f&FlagVirtual != 0 {
		parts = append(parts, "virtual")
	}
	if f&FlagWriter != 0 {
		parts = append(parts, "writer")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// validRole reports whether f names exactly one role, with WRITER only on
// a virtual.
func (f Flags) validRole() bool {
	switch f &^ FlagWriter {
	case FlagMaster:
		return f&FlagWriter == 0
	case FlagVirtual:
		return true
	default:
		return false
	}
}

// State is the connection state of a node
type State int

const (
	StateUnconnected State = iota
	StateOpening
	StateConfigured
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateOpening:
		return "opening"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Node is one serial endpoint, either a physical master device or a virtual
// pseudo-terminal attached to a master.
//
// A Node is owned by the Registry that created it; its mutable state is only
// changed through Registry methods.
type Node struct {
	id        NodeID
	name      string
	flags     Flags
	baudRate  int
	virtuals  []NodeID // children, in association order (masters)
	virtualOf NodeID   // owning master (virtuals)
	link      *Link
	state     State
}

// ID returns the identifier of the node in its registry
func (n *Node) ID() NodeID { return n.id }

// Name returns the device path identifying the node
func (n *Node) Name() string { return n.name }

// Flags returns the current role flags
func (n *Node) Flags() Flags { return n.flags }

// IsMaster reports whether the node is a master
func (n *Node) IsMaster() bool { return n.flags&FlagMaster != 0 }

// IsVirtual reports whether the node is a virtual
func (n *Node) IsVirtual() bool { return n.flags&FlagVirtual != 0 }

// IsWriter reports whether the node currently holds write privilege
func (n *Node) IsWriter() bool { return n.flags&FlagWriter != 0 }

// BaudRate returns the configured baud rate, 0 if unset
func (n *Node) BaudRate() int { return n.baudRate }

// VirtualOf returns the ID of the owning master, 0 if not associated
func (n *Node) VirtualOf() NodeID { return n.virtualOf }

// State returns the connection state
func (n *Node) State() State { return n.state }

// Link returns the live link, nil unless the node is ready
func (n *Node) Link() *Link { return n.link }

// NodeStatus is a point-in-time copy of a node, safe to use without holding
// the registry lock.
type NodeStatus struct {
	ID       NodeID
	Name     string
	Flags    Flags
	BaudRate int
	State    State
	Master   string // owning master name, virtuals only
	Exposed  string // path of the secondary side, virtuals only
	Buffered int
	Paused   bool
	RxBytes  uint64
	TxBytes  uint64
	Virtuals int
}
