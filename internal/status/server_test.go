package status

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/netclock/pkg/protocol"
)

func startServer(t *testing.T, provider Provider) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.sock")
	srv := NewServer(path, provider)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	return path, cancel, done
}

func TestServer_PrepareSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(path, nil)

	l, err := srv.PrepareSocket()
	require.NoError(t, err)
	defer l.Close()
	_, err = os.Stat(path)
	require.NoError(t, err)

	// A stale socket file is replaced.
	l2, err := srv.PrepareSocket()
	require.NoError(t, err)
	l2.Close()
}

func TestServer_QueryReturnsCurrentSnapshot(t *testing.T) {
	phase := "WAITING_FOR_ADDRESS"
	path, cancel, done := startServer(t, func() protocol.Snapshot {
		return protocol.Snapshot{Device: "bench", Phase: phase, Link: "STARTING"}
	})

	snap, err := Query(path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "bench", snap.Device)
	assert.Equal(t, "WAITING_FOR_ADDRESS", snap.Phase)
	assert.False(t, snap.Signal)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop")
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "socket should be removed on shutdown")
}

func TestQuery_NoServer(t *testing.T) {
	_, err := Query(filepath.Join(t.TempDir(), "missing.sock"), 100*time.Millisecond)
	assert.Error(t, err)
}

func TestQuery_InvalidPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.sock")
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("invalid json"))
		conn.Close()
	}()

	_, err = Query(path, time.Second)
	assert.Error(t, err)
}
