package netstack

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/netclock/internal/netif"
)

type recorder struct {
	mu     sync.Mutex
	events []netif.Event
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{got: make(chan struct{}, 16)}
}

func (r *recorder) handle(ev netif.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []netif.Event {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]netif.Event(nil), r.events...)
}

func TestLoop_DispatchByCategoryAndKind(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	anyLink := newRecorder()
	gotIP := newRecorder()
	require.NoError(t, l.Register(netif.CategoryLink, netif.KindAny, anyLink.handle))
	require.NoError(t, l.Register(netif.CategoryAddress, netif.KindStationGotIP, gotIP.handle))

	addr := netip.MustParseAddr("192.0.2.10")
	assert.True(t, l.Post(netif.LinkEvent(netif.KindStationStart)))
	assert.True(t, l.Post(netif.LinkEvent(netif.KindStationDisconnected)))
	assert.True(t, l.Post(netif.GotIP(addr)))
	assert.True(t, l.Post(netif.Event{Category: netif.CategoryAddress, Kind: netif.KindStationLostIP}))

	links := anyLink.wait(t, 2)
	assert.Equal(t, netif.KindStationStart, links[0].Kind)
	assert.Equal(t, netif.KindStationDisconnected, links[1].Kind)

	ips := gotIP.wait(t, 1)
	assert.Equal(t, addr, ips[0].Addr)
}

func TestLoop_PostDoesNotBlockWhenFull(t *testing.T) {
	l := NewLoop(1)

	assert.True(t, l.Post(netif.LinkEvent(netif.KindStationStart)))
	done := make(chan bool, 1)
	go func() { done <- l.Post(netif.LinkEvent(netif.KindStationStart)) }()

	select {
	case ok := <-done:
		assert.False(t, ok, "second post should be dropped")
	case <-time.After(time.Second):
		t.Fatal("Post blocked on a full queue")
	}
}

func TestLoop_HandlerPanicKeepsLoopAlive(t *testing.T) {
	l := NewLoop(4)
	go l.Run(context.Background())
	defer l.Close()

	after := newRecorder()
	require.NoError(t, l.Register(netif.CategoryLink, netif.KindStationStart, func(netif.Event) { panic("boom") }))
	require.NoError(t, l.Register(netif.CategoryLink, netif.KindStationStart, after.handle))

	l.Post(netif.LinkEvent(netif.KindStationStart))
	after.wait(t, 1)
}

func TestLoop_CloseRejectsPosts(t *testing.T) {
	l := NewLoop(4)
	l.Close()
	l.Close()
	assert.False(t, l.Post(netif.LinkEvent(netif.KindStationStart)))
	assert.NoError(t, l.Run(context.Background()))
}

func TestLoop_RegisterNil(t *testing.T) {
	assert.Error(t, NewLoop(1).Register(netif.CategoryLink, netif.KindAny, nil))
}

func TestStack_Sequence(t *testing.T) {
	s := New(4)
	defer s.Close()

	_, err := s.CreateDefaultEventLoop()
	assert.Error(t, err, "loop before init")

	require.NoError(t, s.Init())
	assert.Error(t, s.Init(), "double init")

	assert.Error(t, s.CreateDefaultStation(), "station before loop")

	loop, err := s.CreateDefaultEventLoop()
	require.NoError(t, err)
	require.NotNil(t, loop)
	_, err = s.CreateDefaultEventLoop()
	assert.Error(t, err)

	require.NoError(t, s.CreateDefaultStation())
	assert.Error(t, s.CreateDefaultStation())
}
