// Package eventloop is the epoll readiness driver for serialmux. It
// implements serialmux.Poller and dispatches ready descriptors to a Handler
// from a single goroutine.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allbin/serialmux"
	"golang.org/x/sys/unix"
)

// ErrLoopClosed is returned by operations on a closed loop
var ErrLoopClosed = errors.New("event loop closed")

// Handler receives readiness notifications. Both methods are called from
// the goroutine running Loop.Run, never concurrently.
type Handler interface {
	// Ready is called when the descriptor registered for id is readable or
	// has hung up.
	Ready(id serialmux.NodeID)
	// Tick is called at least once per tick interval.
	Tick(now time.Time)
}

// Loop is a level-triggered epoll loop. A self-pipe wakes epoll_wait when
// the context passed to Run is cancelled.
type Loop struct {
	mu     sync.Mutex
	epfd   int
	pipeR  int // self-pipe read fd
	pipeW  int // self-pipe write fd
	fds    map[int32]serialmux.NodeID
	tick   time.Duration
	closed bool
}

var _ serialmux.Poller = (*Loop)(nil)

// New creates an epoll loop that calls Handler.Tick every tick.
func New(tick time.Duration) (*Loop, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("invalid tick interval %v", tick)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(pipeFds[0])}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, pipeFds[0], &ev); err != nil {
		unix.Close(epfd)
		unix.Close(pipeFds[0])
		unix.Close(pipeFds[1])
		return nil, fmt.Errorf("epoll add pipe: %w", err)
	}

	return &Loop{
		epfd:  epfd,
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
		fds:   make(map[int32]serialmux.NodeID),
		tick:  tick,
	}, nil
}

// Register adds read interest for fd on behalf of node id.
func (l *Loop) Register(fd int, id serialmux.NodeID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoopClosed
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll add %d: %w", fd, err)
	}
	l.fds[int32(fd)] = id
	return nil
}

// Deregister removes interest for fd. Unknown descriptors are ignored.
func (l *Loop) Deregister(fd int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLoopClosed
	}
	if _, ok := l.fds[int32(fd)]; !ok {
		return nil
	}
	delete(l.fds, int32(fd))
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll del %d: %w", fd, err)
	}
	return nil
}

// Registered returns the number of registered descriptors
func (l *Loop) Registered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fds)
}

// Run dispatches events to h until ctx is cancelled or epoll fails.
func (l *Loop) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() {
		// Wake up epoll_wait using self-pipe
		unix.Write(l.pipeW, []byte{1})
	})
	defer stop()

	events := make([]unix.EpollEvent, 64)
	timeout := int(l.tick / time.Millisecond)
	lastTick := time.Now()

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(l.epfd, events, max(timeout, 1))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll wait: %w", err)
		}

		for _, ev := range events[:n] {
			if ev.Fd == int32(l.pipeR) {
				l.drainPipe()
				continue
			}
			l.mu.Lock()
			id, ok := l.fds[ev.Fd]
			l.mu.Unlock()
			// a handler earlier in this batch may have deregistered it
			if ok {
				h.Ready(id)
			}
		}

		if now := time.Now(); now.Sub(lastTick) >= l.tick {
			lastTick = now
			h.Tick(now)
		}
	}
}

func (l *Loop) drainPipe() {
	var b [16]byte
	for {
		if n, err := unix.Read(l.pipeR, b[:]); n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the epoll instance and the self-pipe. Safe to call
// multiple times.
func (l *Loop) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	clear(l.fds)
	return errors.Join(
		unix.Close(l.epfd),
		unix.Close(l.pipeR),
		unix.Close(l.pipeW),
	)
}
