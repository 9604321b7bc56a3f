package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/allbin/serialmux"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type recordingHandler struct {
	mu      sync.Mutex
	ready   []serialmux.NodeID
	ticks   int
	onReady func(id serialmux.NodeID)
}

func (h *recordingHandler) Ready(id serialmux.NodeID) {
	h.mu.Lock()
	h.ready = append(h.ready, id)
	fn := h.onReady
	h.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func (h *recordingHandler) Tick(time.Time) {
	h.mu.Lock()
	h.ticks++
	h.mu.Unlock()
}

func (h *recordingHandler) snapshot() ([]serialmux.NodeID, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]serialmux.NodeID(nil), h.ready...), h.ticks
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestLoop_DispatchesReadyDescriptor(t *testing.T) {
	loop, err := New(10 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	r, w := newPipe(t)
	require.NoError(t, loop.Register(r, 7))
	require.Equal(t, 1, loop.Registered())

	h := &recordingHandler{}
	// consume the byte so a level-triggered loop does not spin
	h.onReady = func(serialmux.NodeID) {
		var b [8]byte
		unix.Read(r, b[:])
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, h) }()

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		ready, ticks := h.snapshot()
		return len(ready) > 0 && ticks > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for Run to exit after cancel")
	}

	ready, _ := h.snapshot()
	require.Equal(t, serialmux.NodeID(7), ready[0])
}

func TestLoop_DeregisterStopsDispatch(t *testing.T) {
	loop, err := New(5 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	r, w := newPipe(t)
	require.NoError(t, loop.Register(r, 1))
	require.NoError(t, loop.Deregister(r))
	require.NoError(t, loop.Deregister(r)) // unknown fd is a no-op
	require.Equal(t, 0, loop.Registered())

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	h := &recordingHandler{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx, h))

	ready, ticks := h.snapshot()
	require.Empty(t, ready)
	require.Positive(t, ticks)
}

func TestLoop_Closed(t *testing.T) {
	loop, err := New(time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, loop.Close())
	require.NoError(t, loop.Close())

	require.ErrorIs(t, loop.Register(0, 1), ErrLoopClosed)
	require.ErrorIs(t, loop.Deregister(0), ErrLoopClosed)
}

func TestNew_InvalidTick(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}
