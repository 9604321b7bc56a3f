package serialmux

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Link is the live transport of a connected node: the primary descriptor
// the core reads and writes, the secondary side of a pty pair for virtuals,
// and the receive buffer.
//
// The buffer is guarded by the registry lock. Write and close are guarded
// by the link's own lock so forwarding can write outside the registry lock.
type Link struct {
	mu        sync.RWMutex
	closed    bool
	node      NodeID
	primary   *os.File
	secondary *os.File
	fd        int
	exposed   string // symlink to the secondary side, virtuals only
	ttyName   string

	buf    []byte
	n      int
	paused bool

	rx atomic.Uint64
	tx atomic.Uint64
}

// Node returns the ID of the node the link belongs to
func (l *Link) Node() NodeID { return l.node }

// Fd returns the primary descriptor
func (l *Link) Fd() int { return l.fd }

// TTYName returns the path of the secondary pty device, empty for masters
func (l *Link) TTYName() string { return l.ttyName }

// Write writes p to the primary descriptor without blocking. A full kernel
// buffer stops the write short with an error matching unix.EAGAIN.
func (l *Link) Write(p []byte) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, ErrLinkClosed
	}

	written := 0
	for written < len(p) {
		n, err := unix.Write(l.fd, p[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			l.tx.Add(uint64(written))
			if errors.Is(err, unix.EAGAIN) {
				return written, err
			}
			return written, fmt.Errorf("%w: %w", ErrIOError, err)
		}
	}
	l.tx.Add(uint64(written))
	return written, nil
}

func (l *Link) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.secondary != nil {
		errs = append(errs, l.secondary.Close())
	}
	errs = append(errs, l.primary.Close())
	return errors.Join(errs...)
}

// ConnectNode opens and configures the transport of n and registers its
// primary descriptor with the poller. On failure every descriptor opened
// for the attempt is closed and the node is left in StateFailed.
func (r *Registry) ConnectNode(n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) {
		return ErrNotFound
	}
	if n.state == StateReady {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, n.name)
	}
	if n.baudRate <= 0 {
		return fmt.Errorf("%w: %s: baud rate not set", ErrInvalidConfig, n.name)
	}

	log := r.logger.With("node", n.name)
	n.state = StateOpening

	var (
		primary, secondary *os.File
		err                error
	)
	if n.IsMaster() {
		primary, err = r.transport.OpenDevice(n.name)
	} else {
		primary, secondary, err = r.transport.OpenPair(n.name)
	}
	if err != nil {
		n.state = StateFailed
		log.Warn("open failed", "err", err)
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, n.name, err)
	}

	l := &Link{
		node:      n.id,
		primary:   primary,
		secondary: secondary,
		fd:        int(primary.Fd()),
	}
	if secondary != nil {
		l.exposed = n.name
		l.ttyName = secondary.Name()
	}

	// Fd() leaves the descriptor in blocking mode
	err = unix.SetNonblock(l.fd, true)
	if err == nil {
		err = r.transport.Configure(l.fd, n.baudRate)
	}
	if err != nil {
		r.release(l)
		n.state = StateFailed
		log.Warn("configure failed", "baud", n.baudRate, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrConfigureFailed, n.name, err)
	}
	n.state = StateConfigured

	l.buf = make([]byte, r.bufSize)
	if err := r.poller.Register(l.fd, n.id); err != nil {
		r.release(l)
		n.state = StateFailed
		log.Warn("register failed", "fd", l.fd, "err", err)
		return fmt.Errorf("%w: %s: register: %w", ErrOpenFailed, n.name, err)
	}

	n.link = l
	n.state = StateReady
	log.Info("connected", "fd", l.fd, "baud", n.baudRate, "tty", l.ttyName)
	return nil
}

// DisconnectNode deregisters and closes the link of n. It is a no-op for
// a node without a link.
func (r *Registry) DisconnectNode(n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) {
		return ErrNotFound
	}
	return r.disconnect(n)
}

func (r *Registry) disconnect(n *Node) error {
	l := n.link
	n.state = StateUnconnected
	if l == nil {
		return nil
	}
	n.link = nil

	var errs []error
	if !l.paused {
		if err := r.poller.Deregister(l.fd); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, r.release(l))
	l.buf = nil
	l.n = 0

	r.logger.Info("disconnected", "node", n.name, "rx", l.rx.Load(), "tx", l.tx.Load())
	return errors.Join(errs...)
}

// release closes the descriptors of l and removes its exposure.
func (r *Registry) release(l *Link) error {
	err := l.close()
	if l.exposed != "" {
		err = errors.Join(err, r.transport.Release(l.exposed, l.ttyName))
	}
	return err
}
