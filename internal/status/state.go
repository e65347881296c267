package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/bus"
)

// State describes the pending-message slot.
type State string

const (
	Empty             State = "EMPTY"
	PendingForeground State = "PENDING_FOREGROUND"
	PendingBackground State = "PENDING_BACKGROUND"
)

// knownStates lists every state. Any state may move to any other: terminal
// events move to Empty and arrivals replace a pending message in place. A
// pending state always names the message it holds.
var knownStates = []State{Empty, PendingForeground, PendingBackground}

// Machine tracks the pending-message slot and publishes every change.
type Machine struct {
	mu         sync.RWMutex
	current    State
	instanceID string
	changedAt  time.Time
	bus        *bus.Bus
}

// NewMachine creates a new state machine starting in Empty state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current:   Empty,
		changedAt: time.Now(),
		bus:       b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns the current state, the instance id it refers to and when it was entered.
func (m *Machine) Snapshot() (State, string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.instanceID, m.changedAt
}

// Transition attempts to move to a new state for the given message instance.
// Returns error if transition is invalid.
func (m *Machine) Transition(to State, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(knownStates, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	if to != Empty && instanceID == "" {
		return fmt.Errorf("transition from %s to %s without a message instance", m.current, to)
	}
	if to == Empty {
		instanceID = ""
	}
	change := StatusChange{
		From:           m.current,
		To:             to,
		FromInstanceID: m.instanceID,
		InstanceID:     instanceID,
	}
	m.current = to
	m.instanceID = instanceID
	m.changedAt = time.Now()
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindIpmStatusChanged,
			Timestamp: m.changedAt,
			Payload:   change,
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From           State
	To             State
	FromInstanceID string
	InstanceID     string
}
