package simlink

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/netclock/internal/netif"
)

type captureLoop struct {
	mu     sync.Mutex
	events []netif.Event
}

func (c *captureLoop) Register(netif.Category, netif.Kind, netif.Handler) error { return nil }

func (c *captureLoop) Post(ev netif.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

func (c *captureLoop) kinds() []netif.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]netif.Kind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

// newSync runs scheduled attempts inline.
func newSync(s Script) *Driver {
	d := New(s)
	d.after = func(_ time.Duration, f func()) { f() }
	return d
}

func TestDriver_DropsThenGrantsAddress(t *testing.T) {
	loop := &captureLoop{}
	addr := netip.MustParseAddr("203.0.113.5")
	d := newSync(Script{Address: addr, Disconnects: 1})

	require.NoError(t, d.Init(loop))
	require.NoError(t, d.SetCredentials(netif.Credentials{SSID: "lab", Password: "pw"}))
	require.NoError(t, d.Start())
	require.NoError(t, d.Connect())
	require.NoError(t, d.Connect())

	assert.Equal(t, []netif.Kind{
		netif.KindStationStart,
		netif.KindStationDisconnected,
		netif.KindStationConnected,
		netif.KindStationGotIP,
	}, loop.kinds())
	assert.Equal(t, addr, loop.events[3].Addr)
	assert.Equal(t, 2, d.Connects())
}

// reconnectLoop reconnects from inside Post, the way a synchronous
// dispatcher runs the reconnect handler.
type reconnectLoop struct {
	captureLoop
	d *Driver
}

func (r *reconnectLoop) Post(ev netif.Event) bool {
	r.captureLoop.Post(ev)
	if ev.Kind == netif.KindStationStart || ev.Kind == netif.KindStationDisconnected {
		_ = r.d.Connect()
	}
	return true
}

func TestDriver_ReconnectFromPostWithInlineAttempts(t *testing.T) {
	d := newSync(Script{Address: netip.MustParseAddr("203.0.113.9"), Disconnects: 2})
	loop := &reconnectLoop{d: d}
	require.NoError(t, d.Init(loop))
	require.NoError(t, d.SetCredentials(netif.Credentials{SSID: "lab"}))

	done := make(chan error, 1)
	go func() { done <- d.Start() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return")
	}

	assert.Equal(t, []netif.Kind{
		netif.KindStationStart,
		netif.KindStationDisconnected,
		netif.KindStationDisconnected,
		netif.KindStationConnected,
		netif.KindStationGotIP,
	}, loop.kinds())
	assert.Equal(t, 3, d.Connects())
}

func TestDriver_NoDHCPAnswer(t *testing.T) {
	loop := &captureLoop{}
	d := newSync(Script{})
	require.NoError(t, d.Init(loop))
	require.NoError(t, d.SetCredentials(netif.Credentials{SSID: "lab"}))
	require.NoError(t, d.Start())
	require.NoError(t, d.Connect())

	assert.Equal(t, []netif.Kind{netif.KindStationStart, netif.KindStationConnected}, loop.kinds())
}

func TestDriver_Preconditions(t *testing.T) {
	d := New(Script{})
	assert.ErrorIs(t, d.Init(nil), errNoLoop)
	assert.ErrorIs(t, d.Start(), errNoLoop)
	assert.ErrorIs(t, d.Connect(), errNotStarted)

	require.NoError(t, d.Init(&captureLoop{}))
	assert.ErrorIs(t, d.Init(&captureLoop{}), errAlreadyInit)
	assert.ErrorIs(t, d.Start(), errNoCreds)
	assert.ErrorIs(t, d.SetCredentials(netif.Credentials{}), errNoSSID)
}

func TestDriver_ConnectIsAsynchronous(t *testing.T) {
	loop := &captureLoop{}
	d := New(Script{Address: netip.MustParseAddr("192.0.2.8"), Latency: 20 * time.Millisecond})
	require.NoError(t, d.Init(loop))
	require.NoError(t, d.SetCredentials(netif.Credentials{SSID: "lab"}))
	require.NoError(t, d.Start())
	require.NoError(t, d.Connect())

	assert.Len(t, loop.kinds(), 1, "attempt should not resolve inside Connect")
	assert.Eventually(t, func() bool { return len(loop.kinds()) == 3 }, time.Second, 5*time.Millisecond)
}
