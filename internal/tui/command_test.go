package tui

import (
	"testing"
	"time"

	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  PUSH _oid=x  type=ipm ", Command{Name: "push", Args: "_oid=x  type=ipm"}},
		{"screen checkout", Command{Name: "screen", Args: "checkout"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.in), tt.in)
	}
	assert.Equal(t, []string{"_oid=x", "type=ipm"}, ParseCommand("push _oid=x  type=ipm").Fields())
}

func TestSampleIpm(t *testing.T) {
	data := sampleIpm([]string{"abc123", "30", "Big", "news"})
	assert.Equal(t, "abc123", data["_oid"])
	assert.Equal(t, "ipm", data["type"])
	assert.Equal(t, "30", data["ttl"])
	assert.Equal(t, "Big news", data["heading"])
	assert.Equal(t, "connect://ipm/abc123", data["action"])

	data = sampleIpm(nil)
	assert.NotContains(t, data, "_oid")
	assert.Equal(t, "60", data["ttl"])
}

func TestScreenForPage(t *testing.T) {
	assert.Equal(t, "home", screenFor("home", "ipm"))
	assert.Equal(t, "ipm", screenFor(pageIpm, "ipm"))
	assert.Equal(t, "in_app_message", screenFor(pageIpm, "in_app_message"))
	assert.Equal(t, "", screenFor(pageBackground, "ipm"))
}

func TestReportScreenDoesNotBlockOnFullQueue(t *testing.T) {
	a := &App{
		lifecycle: make(chan foreground.Event, 1),
		flash:     ui.NewFlashModel(),
	}

	done := make(chan struct{})
	go func() {
		a.reportScreen("home")
		a.reportScreen("settings")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reportScreen blocked on a full lifecycle queue")
	}

	assert.Equal(t, foreground.Event{Kind: foreground.Resumed, Screen: "home"}, <-a.lifecycle)
	assert.Equal(t, "settings", a.screen)
	msg := a.flash.GetMessage()
	if assert.NotNil(t, msg) {
		assert.Equal(t, ui.FlashWarn, msg.Level)
		assert.Contains(t, msg.Text, "dropped")
	}
}
