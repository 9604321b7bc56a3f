// Package daemon drives a serialmux registry from an epoll loop: it builds
// the configured topology, keeps every node connected, and forwards bytes
// between each master and its virtuals.
//
// Forwarding policy:
//   - bytes read from a master go to every connected virtual except the
//     writer, unless echo_to_writer is set
//   - bytes read from the writer go to the master
//   - bytes read from any other virtual are dropped
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allbin/serialmux"
	"github.com/allbin/serialmux/internal/config"
	"github.com/allbin/serialmux/internal/eventloop"
	"golang.org/x/sys/unix"
)

// Daemon owns the registry and the loop driving it
type Daemon struct {
	cfg   *config.Config
	log   *slog.Logger
	loop  *eventloop.Loop
	reg   *serialmux.Registry
	order []serialmux.NodeID // connect order, config order

	retryAt map[serialmux.NodeID]time.Time

	mu      sync.Mutex
	pending []request
}

type requestKind int

const (
	requestReconnect requestKind = iota
	requestToggleWriter
)

// request is a change asked for from outside the loop goroutine. Requests
// are applied on the next tick so the graph is only mutated by the loop.
type request struct {
	kind requestKind
	id   serialmux.NodeID
}

var _ eventloop.Handler = (*Daemon)(nil)

// New creates the loop and registry and builds the configured topology.
// Nothing is opened until Run.
func New(cfg *config.Config, log *slog.Logger, opts ...serialmux.Option) (*Daemon, error) {
	loop, err := eventloop.New(cfg.TickInterval)
	if err != nil {
		return nil, err
	}

	opts = append([]serialmux.Option{
		serialmux.WithLogger(log),
		serialmux.WithBufferSize(cfg.BufferSize),
	}, opts...)
	reg, err := serialmux.NewRegistry(loop, opts...)
	if err != nil {
		loop.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:     cfg,
		log:     log,
		loop:    loop,
		reg:     reg,
		retryAt: make(map[serialmux.NodeID]time.Time),
	}
	if err := d.build(); err != nil {
		reg.Close()
		loop.Close()
		return nil, err
	}
	return d, nil
}

// Registry returns the registry driven by the daemon
func (d *Daemon) Registry() *serialmux.Registry { return d.reg }

// Snapshot returns the status of every node
func (d *Daemon) Snapshot() []serialmux.NodeStatus { return d.reg.Snapshot() }

func (d *Daemon) build() error {
	for _, mc := range d.cfg.Masters {
		m, err := d.reg.CreateNode(mc.Device, serialmux.FlagMaster)
		if err != nil {
			return fmt.Errorf("master %s: %w", mc.Device, err)
		}
		if err := d.reg.SetBaudRate(m, mc.BaudRate); err != nil {
			return fmt.Errorf("master %s: %w", mc.Device, err)
		}
		if err := d.reg.AddNode(m); err != nil {
			return fmt.Errorf("master %s: %w", mc.Device, err)
		}
		d.order = append(d.order, m.ID())

		for _, vc := range mc.Virtuals {
			name, err := vc.ResolveName(mc.Device)
			if err != nil {
				return fmt.Errorf("virtual of %s: %w", mc.Device, err)
			}
			flags := serialmux.FlagVirtual
			if vc.Writer {
				flags |= serialmux.FlagWriter
			}
			v, err := d.reg.CreateNode(name, flags)
			if err != nil {
				return fmt.Errorf("virtual %s: %w", name, err)
			}
			if err := d.reg.SetBaudRate(v, vc.ResolveBaudRate(mc.BaudRate)); err != nil {
				return fmt.Errorf("virtual %s: %w", name, err)
			}
			if err := d.reg.AddVirtualNode(m, v); err != nil {
				return fmt.Errorf("virtual %s: %w", name, err)
			}
			d.order = append(d.order, v.ID())
		}
	}
	d.log.Info("topology built", "masters", len(d.cfg.Masters), "nodes", len(d.order))
	return nil
}

// Run connects every node and dispatches events until ctx is cancelled.
// All nodes are disconnected and deleted before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	now := time.Now()
	for _, id := range d.order {
		d.connect(d.reg.Node(id), now)
	}

	err := d.loop.Run(ctx, d)
	return errors.Join(err, d.reg.Close(), d.loop.Close())
}

// Ready handles a readable descriptor
func (d *Daemon) Ready(id serialmux.NodeID) {
	n := d.reg.Node(id)
	if n == nil {
		return
	}

	if _, err := d.reg.OnReadable(n); err != nil {
		d.drop(n, err, time.Now())
		return
	}
	d.forward(n)
}

// Reconnect asks the loop to drop the link of id and connect it again.
func (d *Daemon) Reconnect(id serialmux.NodeID) {
	d.enqueue(request{kind: requestReconnect, id: id})
}

// ToggleWriter asks the loop to make the virtual id the writer of its
// master, taking the role from the current writer, or to clear the role if
// id already has it.
func (d *Daemon) ToggleWriter(id serialmux.NodeID) {
	d.enqueue(request{kind: requestToggleWriter, id: id})
}

func (d *Daemon) enqueue(r request) {
	d.mu.Lock()
	d.pending = append(d.pending, r)
	d.mu.Unlock()
}

func (d *Daemon) applyPending(now time.Time) {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, r := range pending {
		n := d.reg.Node(r.id)
		if n == nil {
			continue
		}
		switch r.kind {
		case requestReconnect:
			if n.Link() != nil {
				d.drop(n, errors.New("reconnect requested"), now)
			}
			d.retryAt[n.ID()] = now
		case requestToggleWriter:
			if err := d.toggleWriter(n); err != nil {
				d.log.Warn("writer change failed", "node", n.Name(), "err", err)
			}
		}
	}
}

func (d *Daemon) toggleWriter(v *serialmux.Node) error {
	if v.IsWriter() {
		return d.reg.ClearVirtualWriter(v)
	}
	m := d.reg.Master(v)
	if m == nil {
		return serialmux.ErrNotAssociated
	}
	if w := d.reg.GetVirtualWriterNode(m); w != nil {
		if err := d.reg.ClearVirtualWriter(w); err != nil {
			return err
		}
	}
	if err := d.reg.SetVirtualWriter(v); err != nil {
		return err
	}
	d.log.Info("writer changed", "master", m.Name(), "writer", v.Name())
	return nil
}

// Tick applies pending requests, retries failed connects and drains
// buffers left behind by a busy target.
func (d *Daemon) Tick(now time.Time) {
	d.applyPending(now)
	for _, id := range d.order {
		n := d.reg.Node(id)
		if n == nil {
			continue
		}
		if n.State() != serialmux.StateReady {
			if !now.Before(d.retryAt[id]) {
				d.connect(n, now)
			}
			continue
		}
		if d.reg.Buffered(n) > 0 {
			d.forward(n)
		}
	}
}

func (d *Daemon) connect(n *serialmux.Node, now time.Time) {
	if err := d.reg.ConnectNode(n); err != nil {
		d.retryAt[n.ID()] = now.Add(d.cfg.ReconnectInterval)
		d.log.Warn("connect failed", "node", n.Name(), "retry", d.cfg.ReconnectInterval, "err", err)
		return
	}
	delete(d.retryAt, n.ID())
}

func (d *Daemon) drop(n *serialmux.Node, cause error, now time.Time) {
	d.log.Warn("link lost", "node", n.Name(), "err", cause)
	if err := d.reg.DisconnectNode(n); err != nil {
		d.log.Error("disconnect failed", "node", n.Name(), "err", err)
	}
	d.retryAt[n.ID()] = now.Add(d.cfg.ReconnectInterval)
}

func (d *Daemon) forward(n *serialmux.Node) {
	var consume serialmux.Consumer
	switch {
	case n.IsMaster():
		consume = d.broadcast(n)
	case n.IsWriter():
		consume = d.upstream(n)
	default:
		consume = func(p []byte) (int, error) {
			d.log.Debug("dropped bytes from non-writer", "node", n.Name(), "bytes", len(p))
			return len(p), nil
		}
	}

	if _, err := d.reg.DrainTo(n, consume); err != nil && !errors.Is(err, serialmux.ErrLinkClosed) {
		d.log.Warn("forward failed", "node", n.Name(), "err", err)
	}
}

// broadcast writes master bytes to its virtuals. A virtual that cannot keep
// up loses the bytes it could not take; the master is never held back.
func (d *Daemon) broadcast(m *serialmux.Node) serialmux.Consumer {
	return func(p []byte) (int, error) {
		for _, v := range d.reg.Virtuals(m) {
			if v.IsWriter() && !d.cfg.EchoToWriter {
				continue
			}
			l := v.Link()
			if l == nil {
				continue
			}
			if n, err := l.Write(p); err != nil {
				d.log.Debug("virtual overrun", "node", v.Name(), "dropped", len(p)-n, "err", err)
			}
		}
		return len(p), nil
	}
}

// upstream writes the writer's bytes to its master, keeping whatever the
// master cannot take yet buffered.
func (d *Daemon) upstream(v *serialmux.Node) serialmux.Consumer {
	return func(p []byte) (int, error) {
		m := d.reg.Master(v)
		if m == nil || m.Link() == nil {
			d.log.Debug("master not connected, dropped writer bytes", "node", v.Name(), "bytes", len(p))
			return len(p), nil
		}
		n, err := m.Link().Write(p)
		if errors.Is(err, unix.EAGAIN) {
			return n, nil
		}
		return n, err
	}
}
