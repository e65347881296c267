package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Logo shows the simulator banner and whether the navigation stream to the
// daemon is up.
type Logo struct {
	*tview.TextView
	theme     *Theme
	connected bool
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{
		TextView: tv,
		theme:    theme,
	}
	l.render()
	return l
}

// SetConnected updates the daemon link indicator.
func (l *Logo) SetConnected(connected bool) {
	if l.connected == connected {
		return
	}
	l.connected = connected
	l.render()
}

func (l *Logo) render() {
	l.Clear()
	title := colorName(l.theme.TitleColor)

	link := fmt.Sprintf("[%s]○ daemon offline[-]", colorName(l.theme.FlashErrColor))
	if l.connected {
		link = fmt.Sprintf("[%s]● daemon linked[-]", colorName(l.theme.ForegroundColor))
	}

	_, _ = fmt.Fprintf(l,
		"[%[1]s::b] ╔═╗╔═╗╔╗╔╔╗╔╔═╗╔═╗╔╦╗[-:-:-]\n"+
			"[%[1]s::b] ║  ║ ║║║║║║║║╣ ║   ║ [-:-:-]\n"+
			"[%[1]s::b] ╚═╝╚═╝╝╚╝╝╚╝╚═╝╚═╝ ╩ [-:-:-]\n"+
			"[%[2]s]host simulator[-]\n%[3]s",
		title, colorName(l.theme.FgColor), link,
	)
}
