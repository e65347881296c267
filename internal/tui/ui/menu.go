package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is the number of hints per column; it matches the header height.
const menuRows = 6

// Menu displays the keyboard shortcuts of the current page in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.layout(hints))
}

func (m *Menu) layout(hints []MenuHint) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + menuRows - 1) / menuRows
	rows := min(len(hints), menuRows)

	widths := make([]int, cols)
	for i, h := range hints {
		c := i / menuRows
		widths[c] = max(widths[c], len(h.Key)+len(h.Description)+3)
	}

	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)
	fg := colorName(m.theme.FgColor)

	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := c*menuRows + r
			if i >= len(hints) {
				break
			}
			h := hints[i]
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			pad := widths[c] - (len(h.Key) + len(h.Description) + 3) + 2
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] [%s]%s[-]%s", kc, tview.Escape(h.Key), fg, h.Description, strings.Repeat(" ", pad))
		}
		b.WriteString("\n")
	}
	return b.String()
}
