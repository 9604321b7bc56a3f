package serialmux

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Registry owns the node graph: every node it created, the ordered list of
// masters, and each master's ordered set of virtuals. One mutex guards the
// whole graph and all link buffers; a single driver goroutine is the normal
// caller, other goroutines may take snapshots.
type Registry struct {
	mu        sync.Mutex
	poller    Poller
	transport Transport
	logger    *slog.Logger
	bufSize   int

	nextID  NodeID
	nodes   map[NodeID]*Node
	masters []NodeID // head first
}

// NewRegistry creates an empty registry that registers link descriptors
// with poller.
func NewRegistry(poller Poller, opts ...Option) (*Registry, error) {
	if poller == nil {
		return nil, fmt.Errorf("%w: nil poller", ErrInvalidConfig)
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &Registry{
		poller:    poller,
		transport: config.Transport,
		logger:    config.Logger,
		bufSize:   config.BufferSize,
		nodes:     make(map[NodeID]*Node),
	}, nil
}

// CreateNode allocates a node with the given name and role. The node is
// not yet part of the master list or of any virtual set.
func (r *Registry) CreateNode(name string, flags Flags) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty node name", ErrInvalidConfig)
	}
	if len(name) > NameMax-1 {
		return nil, ErrNameTooLong
	}
	if !flags.validRole() {
		return nil, fmt.Errorf("%w: %s", ErrWrongRole, flags)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	n := &Node{
		id:    r.nextID,
		name:  name,
		flags: flags,
	}
	r.nodes[n.id] = n
	return n, nil
}

// AddNode inserts a master at the head of the master list.
func (r *Registry) AddNode(n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) {
		return ErrNotFound
	}
	if !n.IsMaster() {
		return fmt.Errorf("%w: %s is not a master", ErrWrongRole, n.name)
	}
	if r.findMaster(n.name) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateName, n.name)
	}

	r.masters = slices.Insert(r.masters, 0, n.id)
	r.logger.Debug("master added", "node", n.name)
	return nil
}

// DelNode removes a node from the graph and releases its link. A master
// must be listed and have no virtuals left; a virtual is detached from its
// master first.
func (r *Registry) DelNode(n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) {
		return ErrNotFound
	}

	if n.IsMaster() {
		idx := slices.Index(r.masters, n.id)
		if idx < 0 {
			return fmt.Errorf("%w: %s is not listed", ErrNotFound, n.name)
		}
		if len(n.virtuals) > 0 {
			return fmt.Errorf("%w: %s has %d", ErrHasVirtuals, n.name, len(n.virtuals))
		}
		r.masters = slices.Delete(r.masters, idx, idx+1)
	} else if n.virtualOf != 0 {
		r.detach(r.masterOf(n), n)
	}

	err := r.disconnect(n)
	delete(r.nodes, n.id)
	r.logger.Debug("node deleted", "node", n.name, "flags", n.flags)
	return err
}

// GetNode returns the listed master with the given name, or nil.
func (r *Registry) GetNode(name string) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.findMaster(name)
}

// Node returns the node with the given ID, or nil.
func (r *Registry) Node(id NodeID) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nodes[id]
}

// Masters returns the listed masters, most recently added first.
func (r *Registry) Masters() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Node, 0, len(r.masters))
	for _, id := range r.masters {
		out = append(out, r.nodes[id])
	}
	return out
}

// Master returns the master a virtual belongs to, or nil.
func (r *Registry) Master(v *Node) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(v) || v.virtualOf == 0 {
		return nil
	}
	return r.masterOf(v)
}

// SetBaudRate sets the line speed used by the next ConnectNode.
func (r *Registry) SetBaudRate(n *Node, rate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) {
		return ErrNotFound
	}
	if rate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, rate)
	}
	if !ValidBaudRate(rate) {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidBaudRate, rate)
	}
	if n.state == StateReady {
		return ErrAlreadyConnected
	}
	n.baudRate = rate
	return nil
}

// Snapshot copies the state of every listed master and its virtuals, each
// master followed by its virtuals in association order.
func (r *Registry) Snapshot() []NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []NodeStatus
	for _, id := range r.masters {
		m := r.nodes[id]
		out = append(out, m.status(""))
		for _, vid := range m.virtuals {
			out = append(out, r.nodes[vid].status(m.name))
		}
	}
	return out
}

// Close disconnects and deletes every node in the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, n := range r.nodes {
		if err := r.disconnect(n); err != nil {
			errs = append(errs, err)
		}
		n.virtuals = nil
		n.virtualOf = 0
		n.flags &^= FlagWriter
	}
	clear(r.nodes)
	r.masters = nil
	return errors.Join(errs...)
}

func (r *Registry) owns(n *Node) bool {
	return n != nil && r.nodes[n.id] == n
}

func (r *Registry) findMaster(name string) *Node {
	for _, id := range r.masters {
		if n := r.nodes[id]; n.name == name {
			return n
		}
	}
	return nil
}

// masterOf resolves a virtual's back-reference. A dangling reference means
// the graph is corrupt.
func (r *Registry) masterOf(v *Node) *Node {
	m := r.nodes[v.virtualOf]
	if m == nil || !slices.Contains(m.virtuals, v.id) {
		panic(fmt.Sprintf("serialmux: dangling master reference on %s", v.name))
	}
	return m
}

func (n *Node) status(master string) NodeStatus {
	s := NodeStatus{
		ID:       n.id,
		Name:     n.name,
		Flags:    n.flags,
		BaudRate: n.baudRate,
		State:    n.state,
		Master:   master,
		Virtuals: len(n.virtuals),
	}
	if l := n.link; l != nil {
		s.Exposed = l.ttyName
		s.Buffered = l.n
		s.Paused = l.paused
		s.RxBytes = l.rx.Load()
		s.TxBytes = l.tx.Load()
	}
	return s
}
