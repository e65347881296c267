package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// FlashLevel represents the severity of a flash message.
type FlashLevel int

const (
	FlashInfo FlashLevel = iota
	FlashWarn
	FlashErr
)

var flashTTL = map[FlashLevel]time.Duration{
	FlashInfo: 5 * time.Second,
	FlashWarn: 8 * time.Second,
	FlashErr:  10 * time.Second,
}

// FlashMessage is a status-bar message about something the daemon or the
// host just did.
type FlashMessage struct {
	Text    string
	Level   FlashLevel
	At      time.Time
	Expires time.Time
}

// FlashModel holds the latest flash message. It is written from the watch
// and gRPC goroutines and read by the UI.
type FlashModel struct {
	mu      sync.RWMutex
	now     func() time.Time
	current FlashMessage
	watchCh chan FlashMessage
}

// NewFlashModel creates a new flash model.
func NewFlashModel() *FlashModel {
	return &FlashModel{
		now:     time.Now,
		watchCh: make(chan FlashMessage, 8),
	}
}

// Info sets an info-level flash message.
func (f *FlashModel) Info(msg string) { f.set(msg, FlashInfo) }

// Warn sets a warn-level flash message.
func (f *FlashModel) Warn(msg string) { f.set(msg, FlashWarn) }

// Err sets an error-level flash message. A nil error is ignored.
func (f *FlashModel) Err(err error) {
	if err == nil {
		return
	}
	f.set(err.Error(), FlashErr)
}

func (f *FlashModel) set(msg string, level FlashLevel) {
	now := f.now()
	fm := FlashMessage{
		Text:    msg,
		Level:   level,
		At:      now,
		Expires: now.Add(flashTTL[level]),
	}
	f.mu.Lock()
	f.current = fm
	f.mu.Unlock()

	// Keep the newest message when the UI falls behind.
	for {
		select {
		case f.watchCh <- fm:
			return
		default:
		}
		select {
		case <-f.watchCh:
		default:
		}
	}
}

// GetMessage returns the current flash message, or nil if expired.
func (f *FlashModel) GetMessage() *FlashMessage {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.current.Text == "" || f.now().After(f.current.Expires) {
		return nil
	}
	m := f.current
	return &m
}

// Watch returns a channel that receives flash messages.
func (f *FlashModel) Watch() <-chan FlashMessage {
	return f.watchCh
}

// FlashBar is the UI component that displays flash notifications.
type FlashBar struct {
	*tview.TextView
	theme *Theme
}

// NewFlashBar creates a new flash notification bar.
func NewFlashBar(theme *Theme) *FlashBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &FlashBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders msg with its time, or clears the bar when msg is nil.
func (fb *FlashBar) Update(msg *FlashMessage) {
	fb.Clear()
	if msg == nil {
		return
	}

	color := fb.theme.FlashInfoColor
	switch msg.Level {
	case FlashWarn:
		color = fb.theme.FlashWarnColor
	case FlashErr:
		color = fb.theme.FlashErrColor
	}
	_, _ = fmt.Fprintf(fb, " [%s]%s[-] [%s]%s[-]",
		colorName(fb.theme.CounterColor), msg.At.Format("15:04:05"),
		colorName(color), tview.Escape(msg.Text))
}
