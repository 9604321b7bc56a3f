package serialmux

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// Consumer receives buffered bytes from DrainTo and returns how many of
// them it took. Bytes not taken stay buffered for the next drain.
type Consumer func(p []byte) (int, error)

// OnReadable reads whatever is available on the primary descriptor of n
// into the free space of its receive buffer and returns the number of bytes
// added. A spurious wakeup returns 0. When the buffer fills up, read
// interest is dropped until DrainTo makes room again.
func (r *Registry) OnReadable(n *Node) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) || n.link == nil {
		return 0, ErrLinkClosed
	}
	l := n.link

	total := 0
	for l.n < len(l.buf) {
		m, err := unix.Read(l.fd, l.buf[l.n:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			if errors.Is(err, unix.EBADF) {
				l.rx.Add(uint64(total))
				return total, ErrLinkClosed
			}
			l.rx.Add(uint64(total))
			return total, fmt.Errorf("%w: %s: %w", ErrIOError, n.name, err)
		}
		if m == 0 {
			if total == 0 {
				return 0, fmt.Errorf("%w: %s: %w", ErrIOError, n.name, io.EOF)
			}
			break
		}
		l.n += m
		total += m
	}
	l.rx.Add(uint64(total))

	if l.n == len(l.buf) && !l.paused {
		if err := r.poller.Deregister(l.fd); err != nil {
			return total, err
		}
		l.paused = true
		r.logger.Debug("receive buffer full, reads paused", "node", n.name, "bytes", l.n)
	}
	return total, nil
}

// DrainTo hands the buffered bytes of n to consume and removes the prefix
// it took. consume runs without the registry lock held, so it may call
// back into the registry.
func (r *Registry) DrainTo(n *Node, consume Consumer) (int, error) {
	r.mu.Lock()
	if !r.owns(n) || n.link == nil {
		r.mu.Unlock()
		return 0, ErrLinkClosed
	}
	l := n.link
	if l.n == 0 {
		r.mu.Unlock()
		return 0, nil
	}
	data := make([]byte, l.n)
	copy(data, l.buf[:l.n])
	r.mu.Unlock()

	taken, cerr := consume(data)
	taken = max(0, min(taken, len(data)))

	r.mu.Lock()
	defer r.mu.Unlock()

	if n.link != l {
		// disconnected while consuming
		return taken, cerr
	}
	l.n = copy(l.buf, l.buf[taken:l.n])

	if l.paused && l.n < len(l.buf) {
		if err := r.poller.Register(l.fd, n.id); err != nil {
			return taken, errors.Join(cerr, err)
		}
		l.paused = false
		r.logger.Debug("reads resumed", "node", n.name, "bytes", l.n)
	}
	return taken, cerr
}

// Buffered returns the number of bytes waiting in the receive buffer of n.
func (r *Registry) Buffered(n *Node) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owns(n) || n.link == nil {
		return 0
	}
	return n.link.n
}

// Paused reports whether reads on n are paused by a full receive buffer.
func (r *Registry) Paused(n *Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.owns(n) && n.link != nil && n.link.paused
}
