package views

import (
	"fmt"

	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

func (hv *HelpView) render() {
	kc := colorTag(hv.theme.MenuKeyColor)

	help := fmt.Sprintf(`
  [::b]Host Screens[-:-:-]

  [%[1]s]1[-:-:-]      Home screen          [%[1]s]2[-:-:-]      Settings screen
  [%[1]s]n[-:-:-]      Notification tray    [%[1]s]b[-:-:-]      Send host to background
  [%[1]s]?[-:-:-]      Help                 [%[1]s]q[-:-:-]      Quit / Back

  [::b]In-Product Message[-:-:-]

  [%[1]s]a[-:-:-]      Press action button  [%[1]s]Esc[-:-:-]    Dismiss (navigate back)
  [%[1]s]t[-:-:-]      Dismiss (tap outside) [%[1]s]s[-:-:-]     Dismiss (slide down)

  [::b]Notification Tray[-:-:-]

  [%[1]s]Enter[-:-:-]  Open deep link       [%[1]s]p[-:-:-]      Toggle permission
  [%[1]s]/[-:-:-]      Filter

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:push key=value ...[-:-:-]      Deliver a push payload
  [%[1]s]:ipm <id> [ttl[] [heading[][-:-:-] Deliver a sample IPM
  [%[1]s]:screen <name>[-:-:-]           Open a host screen
  [%[1]s]:notifications on|off[-:-:-]    Set notification permission
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]              Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]              Quit application
`, kc)

	_, _ = fmt.Fprint(hv, help)
}
