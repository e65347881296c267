// Package foreground tracks whether the host application is in the
// foreground and notifies listeners once the foreground state has settled.
package foreground

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is how long the host must stay resumed before callbacks fire.
const DefaultDelay = time.Second

// Callback is notified when the host has been in the foreground for the settle delay.
// Implementations are compared by identity, so pointer receivers are expected.
type Callback interface {
	OnForeground()
}

// Timer is the cancellable handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// EventKind is a host lifecycle transition.
type EventKind string

const (
	Resumed EventKind = "RESUMED"
	Paused  EventKind = "PAUSED"
)

// Event is one lifecycle transition for a host screen.
type Event struct {
	Kind   EventKind
	Screen string
}

// Tracker is fed host lifecycle events and exposes the current foreground state.
type Tracker struct {
	mu        sync.Mutex
	delay     time.Duration
	afterFunc AfterFunc
	logger    *zap.Logger

	resumed   map[string]int
	current   string
	callbacks []Callback
	timer     Timer
	armed     uint64 // generation of the armed timer, 0 when idle
	gen       uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithAfterFunc replaces the timer source, mainly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(t *Tracker) { t.afterFunc = fn }
}

// NewTracker creates a tracker that starts in the background.
func NewTracker(delay time.Duration, logger *zap.Logger, opts ...Option) *Tracker {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		delay:     delay,
		afterFunc: realAfterFunc,
		logger:    logger.Named("foreground"),
		resumed:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsForeground reports whether at least one host screen is resumed.
func (t *Tracker) IsForeground() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resumed) > 0
}

// IsCurrentScreen reports whether screen is the most recently resumed screen
// and has not been paused since.
func (t *Tracker) IsCurrentScreen(screen string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != "" && t.current == screen
}

// CurrentScreen returns the most recently resumed screen, or "" when unknown.
func (t *Tracker) CurrentScreen() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// AddCallback registers cb. Adding an already registered callback is a no-op.
func (t *Tracker) AddCallback(cb Callback) {
	if cb == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.callbacks, cb) {
		t.callbacks = append(t.callbacks, cb)
	}
}

// RemoveCallback unregisters cb if present.
func (t *Tracker) RemoveCallback(cb Callback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = slices.DeleteFunc(t.callbacks, func(c Callback) bool { return c == cb })
}

// Callbacks returns the number of registered callbacks.
func (t *Tracker) Callbacks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.callbacks)
}

// Handle applies a lifecycle event.
func (t *Tracker) Handle(e Event) error {
	switch e.Kind {
	case Resumed:
		t.Resumed(e.Screen)
	case Paused:
		t.Paused(e.Screen)
	default:
		return fmt.Errorf("unknown lifecycle event %q", e.Kind)
	}
	return nil
}

// Resumed records that screen came to the front. When callbacks are registered
// a settle timer is (re)armed.
func (t *Tracker) Resumed(screen string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resumed[screen]++
	t.current = screen
	t.logger.Debug("screen resumed", zap.String("screen", screen))

	if len(t.callbacks) == 0 {
		return
	}
	t.stopTimerLocked()
	t.gen++
	gen := t.gen
	t.armed = gen
	t.timer = t.afterFunc(t.delay, func() { t.fire(gen) })
}

// Paused records that screen left the front, cancelling any armed timer.
func (t *Tracker) Paused(screen string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := t.resumed[screen]; n > 1 {
		t.resumed[screen] = n - 1
	} else {
		delete(t.resumed, screen)
	}
	t.current = ""
	t.stopTimerLocked()
	t.logger.Debug("screen paused", zap.String("screen", screen))
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = 0
}

func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	if t.armed != gen {
		// Superseded by a later resume or cancelled by a pause.
		t.mu.Unlock()
		return
	}
	if t.current == "" {
		t.mu.Unlock()
		panic("foreground: settle timer fired with no resumed screen")
	}
	snapshot := slices.Clone(t.callbacks)
	t.mu.Unlock()

	for _, cb := range snapshot {
		cb.OnForeground()
	}

	t.mu.Lock()
	if t.armed == gen {
		t.timer = nil
		t.armed = 0
	}
	t.mu.Unlock()
}
