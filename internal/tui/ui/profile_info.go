package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// ProfileData holds daemon status for the header.
type ProfileData struct {
	Profile       string
	State         string
	InstanceID    string
	Screen        string
	Foreground    bool
	Notifications bool
	PendingJobs   int
	QueuedEvents  int
	Uptime        time.Duration
}

// ProfileInfo displays profile and IPM state in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new profile info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the profile info.
func (pi *ProfileInfo) Update(data *ProfileData) {
	pi.Clear()
	if data == nil {
		return
	}

	fgColor := colorName(pi.theme.FgColor)
	counterColor := colorName(pi.theme.CounterColor)

	ipm := data.State
	if data.InstanceID != "" {
		ipm += " " + data.InstanceID
	}
	host := "background"
	if data.Foreground {
		host = "foreground"
	}
	if data.Screen != "" {
		host += " (" + data.Screen + ")"
	}
	notif := "off"
	if data.Notifications {
		notif = "on"
	}

	text := fmt.Sprintf(
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]IPM:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Host:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Notif:[-:-:-]   [%s]%s[-]\n"+
			"[%s::b]Queue:[-:-:-]   [%s]%d jobs, %d events[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fgColor, counterColor, data.Profile,
		fgColor, counterColor, ipm,
		fgColor, counterColor, host,
		fgColor, counterColor, notif,
		fgColor, counterColor, data.PendingJobs, data.QueuedEvents,
		fgColor, counterColor, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprint(pi, text)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
