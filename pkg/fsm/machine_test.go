package fsm

import (
	"fmt"
	"testing"
	"time"
)

func TestStateMachine_ReentrantFire(t *testing.T) {
	sm := New(State("down"))

	sm.AddTransition(State("down"), State("starting"), Event("start"), func(event Event, args ...interface{}) error {
		return sm.Fire(Event("got_ip"))
	})

	sm.AddTransition(State("starting"), State("connected"), Event("got_ip"), nil)

	done := make(chan bool)
	go func() {
		err := sm.Fire(Event("start"))
		if err != nil {
			t.Errorf("Fire failed: %v", err)
		}
		done <- true
	}()

	select {
	case <-done:
		if sm.Current() != State("connected") {
			t.Errorf("Expected state connected, got %s", sm.Current())
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Deadlock detected: Fire did not return within 1 second")
	}
}

func TestStateMachine_Basic(t *testing.T) {
	sm := New(State("down"))
	sm.AddTransition(State("down"), State("starting"), Event("start"), nil)

	if sm.Current() != State("down") {
		t.Errorf("Expected down, got %s", sm.Current())
	}

	err := sm.Fire(Event("start"))
	if err != nil {
		t.Fatal(err)
	}

	if sm.Current() != State("starting") {
		t.Errorf("Expected starting, got %s", sm.Current())
	}
}

func TestStateMachine_InvalidTransition(t *testing.T) {
	sm := New(State("down"))
	err := sm.Fire(Event("got_ip"))
	if err == nil {
		t.Fatal("Expected error for unknown event")
	}
	if sm.Current() != State("down") {
		t.Errorf("Rejected transition must not move the machine, got %s", sm.Current())
	}
}

func TestStateMachine_HandlerError(t *testing.T) {
	sm := New(State("A"))
	sm.AddTransition(State("A"), State("B"), Event("go"), func(event Event, args ...interface{}) error {
		return fmt.Errorf("handler failed")
	})

	err := sm.Fire(Event("go"))
	if err == nil || err.Error() != "handler failed" {
		t.Fatalf("Expected handler failed error, got %v", err)
	}

	if sm.Current() != State("B") {
		t.Errorf("Expected state B even if handler failed, got %s", sm.Current())
	}
}

func TestStateMachine_StateConsistencyInHandler(t *testing.T) {
	sm := New(State("A"))
	var stateInHandler State
	sm.AddTransition(State("A"), State("B"), Event("go"), func(event Event, args ...interface{}) error {
		stateInHandler = sm.Current()
		return nil
	})

	sm.Fire(Event("go"))
	if stateInHandler != State("B") {
		t.Errorf("Expected handler to see state B, saw %s", stateInHandler)
	}
}

func TestStateMachine_SelfLoopAndObserver(t *testing.T) {
	sm := New(State("polling"))
	sm.AddTransition(State("polling"), State("polling"), Event("retry"), nil)
	sm.AddTransition(State("polling"), State("synced"), Event("synced"), nil)

	var seen []string
	sm.OnTransition(func(from, to State, event Event) {
		seen = append(seen, fmt.Sprintf("%s-%s->%s", from, event, to))
	})

	for i := 0; i < 2; i++ {
		if err := sm.Fire(Event("retry")); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
	}
	if !sm.Can(Event("synced")) {
		t.Fatal("Expected synced to be valid from polling")
	}
	if err := sm.Fire(Event("synced")); err != nil {
		t.Fatal(err)
	}
	if sm.Can(Event("retry")) {
		t.Error("synced is terminal, retry should be rejected")
	}

	want := []string{"polling-retry->polling", "polling-retry->polling", "polling-synced->synced"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, seen)
	}
}
