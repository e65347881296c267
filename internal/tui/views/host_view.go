package views

import (
	"fmt"

	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/rivo/tview"
)

// HostView is one screen of the simulated host application. Showing it
// reports RESUMED for its screen name; leaving it reports PAUSED.
type HostView struct {
	*tview.TextView
	theme  *ui.Theme
	screen string
	about  string
}

// NewHostView creates a host screen called screen.
func NewHostView(theme *ui.Theme, screen, about string) *HostView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(fmt.Sprintf(" %s ", screen))
	tv.SetTitleColor(theme.TitleColor)

	hv := &HostView{
		TextView: tv,
		theme:    theme,
		screen:   screen,
		about:    about,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HostView) Name() string { return hv.screen }

func (hv *HostView) render() {
	hv.Clear()
	kc := colorTag(hv.theme.MenuKeyColor)
	_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n  %s\n\n  Deliver a push with [%s]:push _oid=<id> type=ipm ttl=<seconds> heading=<text>[-]\n",
		sanitizeForTerminal(hv.screen), sanitizeForTerminal(hv.about), kc)
}
