package netup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSignal_SetOnce(t *testing.T) {
	s := NewSignal()
	if s.IsSet() {
		t.Fatal("new signal should be clear")
	}
	if !s.Set() {
		t.Fatal("first Set should report true")
	}
	if s.Set() {
		t.Error("second Set should be a no-op")
	}
	if !s.IsSet() {
		t.Error("signal should stay set")
	}
}

func TestSignal_ConcurrentSetters(t *testing.T) {
	s := NewSignal()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Set() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winning Set, got %d", wins.Load())
	}
}

func TestSignal_WaitObserved(t *testing.T) {
	s := NewSignal()
	results := make(chan WaitResult, 3)
	for i := 0; i < 3; i++ {
		go func() { results <- s.Wait(time.Second) }()
	}

	time.Sleep(20 * time.Millisecond)
	s.Set()

	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			if r != SignalObserved {
				t.Errorf("waiter %d: expected observed, got %s", i, r)
			}
		case <-time.After(time.Second):
			t.Fatal("waiter did not wake after Set")
		}
	}
}

func TestSignal_WaitTimeout(t *testing.T) {
	s := NewSignal()
	start := time.Now()
	if r := s.Wait(30 * time.Millisecond); r != TimedOut {
		t.Fatalf("Expected timed out, got %s", r)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("Wait returned before its timeout")
	}
	if r := s.Wait(0); r != TimedOut {
		t.Errorf("Zero timeout on clear signal should time out, got %s", r)
	}
	s.Set()
	if r := s.Wait(0); r != SignalObserved {
		t.Errorf("Zero timeout on set signal should observe, got %s", r)
	}
}

func TestSignal_WaitForeverNeedsExternalBound(t *testing.T) {
	s := NewSignal()
	done := make(chan WaitResult, 1)
	go func() { done <- s.Wait(-1) }()

	select {
	case r := <-done:
		t.Fatalf("indefinite wait returned %s without Set", r)
	case <-time.After(50 * time.Millisecond):
	}

	s.Set()
	select {
	case r := <-done:
		if r != SignalObserved {
			t.Errorf("Expected observed, got %s", r)
		}
	case <-time.After(time.Second):
		t.Fatal("indefinite wait did not wake after Set")
	}
}

func TestSignal_WaitContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if r := s.WaitContext(ctx); r != TimedOut {
		t.Errorf("Expected timed out on cancelled context, got %s", r)
	}

	s.Set()
	if r := s.WaitContext(ctx); r != SignalObserved {
		t.Errorf("Set signal should be observed even with a done context, got %s", r)
	}
}
