package status

import (
	"testing"

	"github.com/matheus3301/connect/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Empty {
		t.Errorf("initial state = %s, want EMPTY", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Empty, PendingForeground},
		{Empty, PendingBackground},
		{Empty, Empty},
		{PendingBackground, PendingBackground},
		{PendingBackground, PendingForeground},
		{PendingBackground, Empty},
		{PendingForeground, PendingForeground},
		{PendingForeground, PendingBackground},
		{PendingForeground, Empty},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			if tt.from != Empty {
				if err := m.Transition(tt.from, "setup"); err != nil {
					t.Fatal(err)
				}
			}
			if err := m.Transition(tt.to, "next"); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(State("SHOWING"), "x"); err == nil {
		t.Error("Transition(EMPTY -> SHOWING) should fail")
	}
	if m.Current() != Empty {
		t.Errorf("state = %s, want EMPTY (should not have changed)", m.Current())
	}
}

func TestPendingRequiresInstanceID(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(PendingBackground, "abc123"); err != nil {
		t.Fatal(err)
	}
	for _, to := range []State{PendingForeground, PendingBackground} {
		if err := m.Transition(to, ""); err == nil {
			t.Errorf("Transition(%s) without instance should fail", to)
		}
	}
	state, id, _ := m.Snapshot()
	if state != PendingBackground || id != "abc123" {
		t.Errorf("snapshot = %s/%q, want PENDING_BACKGROUND/abc123 (should not have changed)", state, id)
	}
	if err := m.Transition(Empty, ""); err != nil {
		t.Errorf("Transition(EMPTY) error = %v", err)
	}
}

func TestEmptyDropsInstanceID(t *testing.T) {
	m := NewMachine(nil)
	_ = m.Transition(PendingBackground, "abc123")
	_ = m.Transition(Empty, "abc123")

	state, id, _ := m.Snapshot()
	if state != Empty || id != "" {
		t.Errorf("snapshot = %s/%q, want EMPTY with no instance", state, id)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("ipm.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(PendingBackground, "x1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(PendingBackground, "x2"); err != nil {
		t.Fatal(err)
	}

	<-ch
	evt := <-ch
	if evt.Kind != bus.KindIpmStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindIpmStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.FromInstanceID != "x1" || change.InstanceID != "x2" {
		t.Errorf("change = %q -> %q, want x1 -> x2", change.FromInstanceID, change.InstanceID)
	}
}

// TestBackgroundArrivalThenStableForeground walks the abc123 scenario:
// EMPTY -> PENDING_BACKGROUND -> PENDING_FOREGROUND -> EMPTY
func TestBackgroundArrivalThenStableForeground(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{PendingBackground, PendingForeground, Empty}
	for _, s := range steps {
		if err := m.Transition(s, "abc123"); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Empty {
		t.Errorf("final state = %s, want EMPTY", m.Current())
	}
}
