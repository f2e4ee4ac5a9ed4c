// Package netup holds the connectivity side of bring-up: the write-once
// connection signal and the event source that sets it.
package netup

import (
	"context"
	"sync"
	"time"
)

// WaitResult is the state a waiter observed when its wait ended.
type WaitResult int

const (
	SignalObserved WaitResult = iota
	TimedOut
)

func (r WaitResult) String() string {
	switch r {
	case SignalObserved:
		return "observed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Signal is a binary latch: set once, never cleared. Set is safe to call from
// the event loop while any number of goroutines wait.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set latches the signal. It reports true only for the call that set it.
func (s *Signal) Set() (first bool) {
	s.once.Do(func() {
		close(s.ch)
		first = true
	})
	return first
}

func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Wait blocks until the signal is set or timeout elapses.
// A negative timeout waits forever; zero only samples the current state.
func (s *Signal) Wait(timeout time.Duration) WaitResult {
	if timeout < 0 {
		<-s.ch
		return SignalObserved
	}
	if timeout == 0 {
		if s.IsSet() {
			return SignalObserved
		}
		return TimedOut
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.ch:
		return SignalObserved
	case <-t.C:
		return TimedOut
	}
}

// WaitContext blocks until the signal is set or ctx is done.
func (s *Signal) WaitContext(ctx context.Context) WaitResult {
	if s.IsSet() {
		return SignalObserved
	}
	select {
	case <-s.ch:
		return SignalObserved
	case <-ctx.Done():
		return TimedOut
	}
}

// Personal.AI order the ending
