package netstack

import (
	"context"
	"errors"
	"sync"

	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/pkg/logger"
)

var (
	errAlreadyInit   = errors.New("network stack already initialized")
	errNotInit       = errors.New("network stack not initialized")
	errLoopExists    = errors.New("default event loop already created")
	errNoLoop        = errors.New("default event loop not created")
	errStationExists = errors.New("default station already created")
)

// Stack is the host-side network stack: it owns the default event loop and
// tracks creation of the default station interface.
type Stack struct {
	mu        sync.Mutex
	queueSize int
	ready     bool
	loop      *Loop
	station   bool
	cancel    context.CancelFunc
}

// New returns a stack whose default event loop buffers queueSize events.
func New(queueSize int) *Stack {
	return &Stack{queueSize: queueSize}
}

func (s *Stack) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return errAlreadyInit
	}
	s.ready = true
	logger.Log.Debug("Network stack initialized")
	return nil
}

// CreateDefaultEventLoop creates the loop and starts its dispatch goroutine.
func (s *Stack) CreateDefaultEventLoop() (netif.EventLoop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, errNotInit
	}
	if s.loop != nil {
		return nil, errLoopExists
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.loop = NewLoop(s.queueSize)
	s.cancel = cancel
	go s.loop.Run(ctx)
	return s.loop, nil
}

func (s *Stack) CreateDefaultStation() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop == nil {
		return errNoLoop
	}
	if s.station {
		return errStationExists
	}
	s.station = true
	return nil
}

// Close stops the default event loop.
func (s *Stack) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		s.loop.Close()
		s.cancel()
	}
}

// Personal.AI order the ending
