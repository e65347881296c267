package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/connect/internal/tui/model"
	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/rivo/tview"
)

// TrayView lists system notifications posted by the daemon.
type TrayView struct {
	*tview.Table
	theme   *ui.Theme
	items   []model.Notification
	filter  string
	enabled bool
}

// NewTrayView creates a new notification tray table.
func NewTrayView(theme *ui.Theme) *TrayView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	tv := &TrayView{
		Table:   table,
		theme:   theme,
		enabled: true,
	}
	tv.render()
	return tv
}

// Name implements Component.
func (tv *TrayView) Name() string { return "Notifications" }

// Update replaces the listed notifications.
func (tv *TrayView) Update(items []model.Notification) {
	tv.items = items
	tv.render()
}

// SetEnabled shows whether the notification permission is granted.
func (tv *TrayView) SetEnabled(enabled bool) {
	tv.enabled = enabled
	tv.render()
}

// SetFilter sets the active filter text and re-renders.
func (tv *TrayView) SetFilter(filter string) {
	tv.filter = filter
	tv.render()
}

func (tv *TrayView) visible() []model.Notification {
	if tv.filter == "" {
		return tv.items
	}
	var out []model.Notification
	for _, n := range tv.items {
		if containsFold(n.Title, tv.filter) || containsFold(n.Body, tv.filter) {
			out = append(out, n)
		}
	}
	return out
}

func (tv *TrayView) render() {
	tv.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" ID", 0},
		{" TITLE", 1},
		{" BODY", 2},
		{" LINK", 1},
		{" POSTED", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(tv.theme.TableHeaderFg).
			SetBackgroundColor(tv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		tv.SetCell(0, col, cell)
	}

	items := tv.visible()
	for i, n := range items {
		row := i + 1
		title := n.Title
		if n.TestPush {
			title = "[test] " + title
		}
		tv.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", n.NotificationID)).SetTextColor(tv.theme.CounterColor))
		tv.SetCell(row, 1, tview.NewTableCell(" "+sanitizeForTerminal(title)).SetExpansion(1).SetTextColor(tv.theme.FgColor))
		tv.SetCell(row, 2, tview.NewTableCell(" "+sanitizeForTerminal(n.Body)).SetExpansion(2).SetTextColor(tv.theme.FgColor))
		tv.SetCell(row, 3, tview.NewTableCell(" "+sanitizeForTerminal(n.DeepLink)).SetExpansion(1).SetTextColor(tv.theme.FgColor))
		tv.SetCell(row, 4, tview.NewTableCell(formatTimestamp(n.PostedAt)).SetTextColor(tv.theme.FgColor).SetAlign(tview.AlignRight))
	}

	perm := "on"
	if !tv.enabled {
		perm = "off"
	}
	if tv.filter != "" {
		tv.SetTitle(fmt.Sprintf(" Notifications (%d/%d) filter: %s [permission %s] ", len(items), len(tv.items), tv.filter, perm))
	} else {
		tv.SetTitle(fmt.Sprintf(" Notifications (%d) [permission %s] ", len(tv.items), perm))
	}
}

// Selected returns the highlighted notification.
func (tv *TrayView) Selected() (model.Notification, bool) {
	row, _ := tv.GetSelection()
	items := tv.visible()
	idx := row - 1
	if idx < 0 || idx >= len(items) {
		return model.Notification{}, false
	}
	return items[idx], true
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
