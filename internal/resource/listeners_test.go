package resource

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerSet_Idempotent(t *testing.T) {
	s := NewListenerSet()
	defer s.Close()

	l1, err := s.Ensure("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	l2, err := s.Ensure("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Same(t, l1, l2)
	assert.Equal(t, []string{"tcp://127.0.0.1:0"}, s.Keys())
}

func TestListenerSet_UnixReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s := NewListenerSet()
	l, err := s.Ensure("unix", path)
	require.NoError(t, err)

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	conn.Close()

	s.Close()
	_, err = l.Accept()
	assert.Error(t, err, "listener should be closed")
	assert.Empty(t, s.Keys())
}

func TestListenerSet_Errors(t *testing.T) {
	s := NewListenerSet()
	defer s.Close()

	_, err := s.Ensure("udp", "127.0.0.1:0")
	assert.Error(t, err)

	l, err := s.Ensure("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, err = s.Ensure("tcp", l.Addr().String())
	assert.Error(t, err, "port already bound")
}

func TestListenerSet_KeysSorted(t *testing.T) {
	s := NewListenerSet()
	defer s.Close()

	_, err := s.Ensure("unix", filepath.Join(t.TempDir(), "b.sock"))
	require.NoError(t, err)
	_, err = s.Ensure("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	keys := s.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "tcp://127.0.0.1:0", keys[0])
}
