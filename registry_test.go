package serialmux

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRegistry(&mockPoller{}, WithBufferSize(0))
	require.ErrorIs(t, err, ErrInvalidConfig)

	reg, err := NewRegistry(&mockPoller{})
	require.NoError(t, err)
	require.Equal(t, DefaultBufferSize, reg.bufSize)
}

func TestCreateNode(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	tests := []struct {
		name    string
		node    string
		flags   Flags
		wantErr error
	}{
		{"master", "/dev/ttyS1", FlagMaster, nil},
		{"virtual", "/dev/ttyS1.a", FlagVirtual, nil},
		{"virtual writer", "/dev/ttyS1.b", FlagVirtual | FlagWriter, nil},
		{"both roles", "/dev/ttyS2", FlagMaster | FlagVirtual, ErrWrongRole},
		{"no role", "/dev/ttyS2", 0, ErrWrongRole},
		{"writer only", "/dev/ttyS2", FlagWriter, ErrWrongRole},
		{"master writer", "/dev/ttyS2", FlagMaster | FlagWriter, ErrWrongRole},
		{"empty name", "", FlagMaster, ErrInvalidConfig},
		{"name too long", "/dev/" + strings.Repeat("x", NameMax), FlagMaster, ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := reg.CreateNode(tt.node, tt.flags)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, n)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.node, n.Name())
			require.Equal(t, tt.flags, n.Flags())
			require.False(t, n.IsMaster() && n.IsVirtual())
			require.Zero(t, n.BaudRate())
			require.Nil(t, n.Link())
			require.Equal(t, StateUnconnected, n.State())
			// created, not listed
			require.Nil(t, reg.GetNode(tt.node))
		})
	}
}

func TestAddNode(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	m1 := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	m2 := mustNode(t, reg, "/dev/ttyS2", FlagMaster, 9600)
	dup := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	v := mustNode(t, reg, "/dev/ttyS1.app", FlagVirtual, 9600)

	require.NoError(t, reg.AddNode(m1))
	require.NoError(t, reg.AddNode(m2))
	require.Same(t, m1, reg.GetNode("/dev/ttyS1"))
	require.Same(t, m2, reg.GetNode("/dev/ttyS2"))

	// head insertion
	require.Equal(t, []*Node{m2, m1}, reg.Masters())

	require.ErrorIs(t, reg.AddNode(dup), ErrDuplicateName)
	require.ErrorIs(t, reg.AddNode(m1), ErrDuplicateName)
	require.ErrorIs(t, reg.AddNode(v), ErrWrongRole)
	require.Len(t, reg.Masters(), 2)
	require.Same(t, m1, reg.GetNode("/dev/ttyS1"))

	require.Nil(t, reg.GetNode("/dev/ttyS9"))
}

func TestAddNode_ForeignNode(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	other, _, _ := newTestRegistry(t)

	n := mustNode(t, other, "/dev/ttyS1", FlagMaster, 0)
	require.ErrorIs(t, reg.AddNode(n), ErrNotFound)
	require.ErrorIs(t, reg.AddNode(nil), ErrNotFound)
}

func TestDelNode(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	v := mustNode(t, reg, "/dev/ttyS1.app", FlagVirtual, 9600)

	require.ErrorIs(t, reg.DelNode(m), ErrNotFound, "unlisted master")

	require.NoError(t, reg.AddNode(m))
	require.NoError(t, reg.AddVirtualNode(m, v))

	require.ErrorIs(t, reg.DelNode(m), ErrHasVirtuals)
	require.Same(t, m, reg.GetNode(m.Name()))

	require.NoError(t, reg.RemoveVirtualNode(m, v))
	require.NoError(t, reg.DelNode(m))
	require.Nil(t, reg.GetNode(m.Name()))
	require.Nil(t, reg.Node(m.ID()))
	require.ErrorIs(t, reg.DelNode(m), ErrNotFound)
}

func TestDelNode_VirtualDetaches(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	v := mustNode(t, reg, "/dev/ttyS1.app", FlagVirtual|FlagWriter, 9600)
	require.NoError(t, reg.AddNode(m))
	require.NoError(t, reg.AddVirtualNode(m, v))
	require.NoError(t, reg.ConnectNode(v))

	require.NoError(t, reg.DelNode(v))
	require.Nil(t, reg.GetVirtualNode(m, v.Name()))
	require.Nil(t, reg.GetVirtualWriterNode(m))
	require.Nil(t, v.Link())
	require.NoError(t, reg.DelNode(m))
}

func TestDelNode_DisconnectsMaster(t *testing.T) {
	reg, poller, _ := newTestRegistry(t)

	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	require.NoError(t, reg.AddNode(m))
	require.NoError(t, reg.ConnectNode(m))
	fd := m.Link().Fd()

	require.NoError(t, reg.DelNode(m))
	require.Nil(t, m.Link())
	require.Equal(t, StateUnconnected, m.State())
	poller.AssertCalled(t, "Deregister", fd)
}

// Adding and deleting in any order never lists two masters with the same
// name, and a listed master is always found by name.
func TestAddDelSequence(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	listed := make(map[string]*Node)
	for i := 0; i < 200; i++ {
		name := fmt.Sprintf("/dev/ttyS%d", (i*7)%5)
		if n, ok := listed[name]; ok && i%3 == 0 {
			require.NoError(t, reg.DelNode(n))
			delete(listed, name)
			continue
		}

		n := mustNode(t, reg, name, FlagMaster, 0)
		err := reg.AddNode(n)
		if _, ok := listed[name]; ok {
			require.ErrorIs(t, err, ErrDuplicateName)
		} else {
			require.NoError(t, err)
			listed[name] = n
		}

		seen := make(map[string]bool)
		for _, m := range reg.Masters() {
			require.False(t, seen[m.Name()], "duplicate %s", m.Name())
			seen[m.Name()] = true
		}
		for name, n := range listed {
			require.Same(t, n, reg.GetNode(name))
		}
	}
}

func TestSetBaudRate(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 0)

	require.ErrorIs(t, reg.SetBaudRate(m, 0), ErrInvalidConfig)
	require.ErrorIs(t, reg.SetBaudRate(m, -9600), ErrInvalidConfig)
	require.ErrorIs(t, reg.SetBaudRate(m, 12345), ErrInvalidBaudRate)
	require.Zero(t, m.BaudRate())

	require.NoError(t, reg.SetBaudRate(m, 19200))
	require.Equal(t, 19200, m.BaudRate())

	require.NoError(t, reg.ConnectNode(m))
	require.ErrorIs(t, reg.SetBaudRate(m, 9600), ErrAlreadyConnected)
}

func TestSnapshot(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	a := mustNode(t, reg, "/dev/ttyS1.a", FlagVirtual|FlagWriter, 9600)
	b := mustNode(t, reg, "/dev/ttyS1.b", FlagVirtual, 9600)
	require.NoError(t, reg.AddNode(m))
	require.NoError(t, reg.AddVirtualNode(m, a))
	require.NoError(t, reg.AddVirtualNode(m, b))
	require.NoError(t, reg.ConnectNode(m))

	snap := reg.Snapshot()
	require.Len(t, snap, 3)

	require.Equal(t, "/dev/ttyS1", snap[0].Name)
	require.Equal(t, StateReady, snap[0].State)
	require.Equal(t, 2, snap[0].Virtuals)

	require.Equal(t, "/dev/ttyS1.a", snap[1].Name)
	require.Equal(t, "/dev/ttyS1", snap[1].Master)
	require.Equal(t, FlagVirtual|FlagWriter, snap[1].Flags)
	require.Equal(t, StateUnconnected, snap[1].State)

	require.Equal(t, "/dev/ttyS1.b", snap[2].Name)
}

func TestRegistryClose(t *testing.T) {
	reg, _, transport := newTestRegistry(t)

	m := mustNode(t, reg, "/dev/ttyS1", FlagMaster, 9600)
	v := mustNode(t, reg, "/dev/ttyS1.a", FlagVirtual, 9600)
	require.NoError(t, reg.AddNode(m))
	require.NoError(t, reg.AddVirtualNode(m, v))
	require.NoError(t, reg.ConnectNode(m))
	require.NoError(t, reg.ConnectNode(v))

	require.NoError(t, reg.Close())
	require.Empty(t, reg.Masters())
	require.Nil(t, reg.Node(m.ID()))
	require.Nil(t, m.Link())
	require.Nil(t, v.Link())
	require.Equal(t, []string{"/dev/ttyS1.a"}, transport.released)
}

func TestFlagsString(t *testing.T) {
	tests := []struct {
		flags    Flags
		expected string
	}{
		{0, "none"},
		{FlagMaster, "master"},
		{FlagVirtual, "virtual"},
		{FlagVirtual | FlagWriter, "virtual|writer"},
	}

	for _, test := range tests {
		if got := test.flags.String(); got != test.expected {
			t.Errorf("Flags(%d).String() = %q, expected %q", test.flags, got, test.expected)
		}
	}
}
