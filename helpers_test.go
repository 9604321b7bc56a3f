package serialmux

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type mockPoller struct {
	mock.Mock
}

var _ Poller = (*mockPoller)(nil)

func (m *mockPoller) Register(fd int, id NodeID) error {
	args := m.Called(fd, id)
	return args.Error(0)
}

func (m *mockPoller) Deregister(fd int) error {
	args := m.Called(fd)
	return args.Error(0)
}

// acceptAll makes the poller accept every call
func (m *mockPoller) acceptAll() *mockPoller {
	m.On("Register", mock.Anything, mock.Anything).Return(nil)
	m.On("Deregister", mock.Anything).Return(nil)
	return m
}

// fakeTransport backs every link with a socketpair. The test keeps the far
// end of each pair to play the remote side.
type fakeTransport struct {
	mu           sync.Mutex
	peers        map[string]*os.File
	opened       int
	released     []string
	bauds        []int
	openErr      error
	configureErr error
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		peers: make(map[string]*os.File),
	}
}

func (f *fakeTransport) socketpair(name string) (*os.File, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	f.peers[name] = os.NewFile(uintptr(fds[1]), name+".peer")
	f.opened++
	return os.NewFile(uintptr(fds[0]), name), nil
}

func (f *fakeTransport) OpenDevice(path string) (*os.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.socketpair(path)
}

func (f *fakeTransport) OpenPair(name string) (*os.File, *os.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	primary, err := f.socketpair(name)
	if err != nil {
		return nil, nil, err
	}
	secondary, err := os.Open(os.DevNull)
	if err != nil {
		primary.Close()
		return nil, nil, err
	}
	return primary, secondary, nil
}

func (f *fakeTransport) Configure(fd int, baudRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.configureErr != nil {
		return f.configureErr
	}
	f.bauds = append(f.bauds, baudRate)
	return nil
}

func (f *fakeTransport) Release(name, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, name)
	return nil
}

func (f *fakeTransport) peer(t *testing.T, name string) *os.File {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[name]
	require.True(t, ok, "no peer for %s", name)
	return p
}

func (f *fakeTransport) closePeers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.peers {
		p.Close()
	}
}

// countFDs returns the number of open descriptors of the test process
func countFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *mockPoller, *fakeTransport) {
	t.Helper()
	poller := (&mockPoller{}).acceptAll()
	transport := newFakeTransport()
	opts = append([]Option{WithTransport(transport)}, opts...)

	reg, err := NewRegistry(poller, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		reg.Close()
		transport.closePeers()
	})
	return reg, poller, transport
}

func mustNode(t *testing.T, reg *Registry, name string, flags Flags, baud int) *Node {
	t.Helper()
	n, err := reg.CreateNode(name, flags)
	require.NoError(t, err)
	if baud > 0 {
		require.NoError(t, reg.SetBaudRate(n, baud))
	}
	return n
}
