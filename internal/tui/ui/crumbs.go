package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs shows the page stack and, on the right, the host screen the daemon
// was last told about.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail for stack. screen is the resumed host screen, or
// "" while the host is in the background.
func (c *Crumbs) Update(stack []string, screen string) {
	c.Clear()

	parts := make([]string, 0, len(stack))
	for i, name := range stack {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			colorName(fg), colorName(bg), attr, tview.Escape(name)))
	}

	state := fmt.Sprintf("[%s]background[-]", colorName(c.theme.BackgroundColor))
	if screen != "" {
		state = fmt.Sprintf("[%s]resumed %s[-]", colorName(c.theme.ForegroundColor), tview.Escape(screen))
	}
	_, _ = fmt.Fprintf(c, "%s   %s", strings.Join(parts, " > "), state)
}
