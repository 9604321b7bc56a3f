package serialmux

import (
	"fmt"
	"slices"
)

// AddVirtualNode appends v to the virtual set of master m.
func (r *Registry) AddVirtualNode(m, v *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(m) || !r.owns(v) {
		return ErrNotFound
	}
	if !m.IsMaster() || !v.IsVirtual() {
		return fmt.Errorf("%w: %s (%s) as virtual of %s (%s)", ErrWrongRole, v.name, v.flags, m.name, m.flags)
	}
	if v.virtualOf != 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyAssociated, v.name)
	}
	if r.findVirtual(m, v.name) != nil {
		return fmt.Errorf("%w: %s under %s", ErrDuplicateName, v.name, m.name)
	}
	if v.IsWriter() {
		if w := r.writerOf(m); w != nil {
			return fmt.Errorf("%w: %s holds write privilege on %s", ErrWriterConflict, w.name, m.name)
		}
	}

	m.virtuals = append(m.virtuals, v.id)
	v.virtualOf = m.id
	r.logger.Debug("virtual added", "node", v.name, "master", m.name, "writer", v.IsWriter())
	return nil
}

// RemoveVirtualNode detaches v from master m. Write privilege held by v is
// dropped and not handed to another virtual.
func (r *Registry) RemoveVirtualNode(m, v *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(m) || !r.owns(v) {
		return ErrNotFound
	}
	if v.virtualOf != m.id || !slices.Contains(m.virtuals, v.id) {
		return fmt.Errorf("%w: %s under %s", ErrNotAssociated, v.name, m.name)
	}

	r.detach(m, v)
	r.logger.Debug("virtual removed", "node", v.name, "master", m.name)
	return nil
}

// GetVirtualNode returns the virtual of m with the given name, or nil.
func (r *Registry) GetVirtualNode(m *Node, name string) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(m) {
		return nil
	}
	return r.findVirtual(m, name)
}

// GetVirtualWriterNode returns the virtual of m holding write privilege, or
// nil when none does.
func (r *Registry) GetVirtualWriterNode(m *Node) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(m) {
		return nil
	}
	return r.writerOf(m)
}

// Virtuals returns the virtual set of m in association order.
func (r *Registry) Virtuals(m *Node) []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(m) {
		return nil
	}
	out := make([]*Node, 0, len(m.virtuals))
	for _, id := range m.virtuals {
		out = append(out, r.nodes[id])
	}
	return out
}

// SetVirtualWriter grants write privilege to v. It fails with
// ErrWriterConflict while another virtual of the same master holds it.
func (r *Registry) SetVirtualWriter(v *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(v) {
		return ErrNotFound
	}
	if !v.IsVirtual() {
		return fmt.Errorf("%w: %s is not a virtual", ErrWrongRole, v.name)
	}
	if v.virtualOf == 0 {
		return fmt.Errorf("%w: %s", ErrNotAssociated, v.name)
	}

	m := r.masterOf(v)
	if w := r.writerOf(m); w != nil && w != v {
		return fmt.Errorf("%w: %s holds write privilege on %s", ErrWriterConflict, w.name, m.name)
	}
	v.flags |= FlagWriter
	r.logger.Info("writer assigned", "node", v.name, "master", m.name)
	return nil
}

// ClearVirtualWriter drops write privilege from v, if it holds it.
func (r *Registry) ClearVirtualWriter(v *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(v) {
		return ErrNotFound
	}
	if !v.IsVirtual() {
		return fmt.Errorf("%w: %s is not a virtual", ErrWrongRole, v.name)
	}
	v.flags &^= FlagWriter
	return nil
}

func (r *Registry) findVirtual(m *Node, name string) *Node {
	for _, id := range m.virtuals {
		if v := r.nodes[id]; v.name == name {
			return v
		}
	}
	return nil
}

// writerOf scans the virtual set of m. More than one writer means the
// graph is corrupt.
func (r *Registry) writerOf(m *Node) *Node {
	var writer *Node
	for _, id := range m.virtuals {
		v := r.nodes[id]
		if !v.IsWriter() {
			continue
		}
		if writer != nil {
			panic(fmt.Sprintf("serialmux: %s has writers %s and %s", m.name, writer.name, v.name))
		}
		writer = v
	}
	return writer
}

func (r *Registry) detach(m, v *Node) {
	if idx := slices.Index(m.virtuals, v.id); idx >= 0 {
		m.virtuals = slices.Delete(m.virtuals, idx, idx+1)
	}
	v.virtualOf = 0
	v.flags &^= FlagWriter
}
