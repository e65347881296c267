package views

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/rivo/tview"
)

// DeepLinkView shows a launched deep link as a scannable QR code, standing in
// for the host opening it.
type DeepLinkView struct {
	*tview.TextView
	theme *ui.Theme
	link  string
}

// NewDeepLinkView creates a new deep link view.
func NewDeepLinkView(theme *ui.Theme) *DeepLinkView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Deep Link ")
	tv.SetTitleColor(theme.TitleColor)

	return &DeepLinkView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (dv *DeepLinkView) Name() string { return "Deep Link" }

// Link returns the link currently shown.
func (dv *DeepLinkView) Link() string {
	return dv.link
}

// ShowLink renders u as text and QR code.
func (dv *DeepLinkView) ShowLink(u *url.URL) {
	dv.Clear()
	dv.link = u.String()

	ascii := renderQR(dv.link)
	_, _ = fmt.Fprintf(dv, "\n  [::b]%s[-:-:-]\n\n%s\n  [::d]Scan to open on a device", sanitizeForTerminal(dv.link), ascii)
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters. Two bitmap rows become one terminal line.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}
	qr.DisableBorder = false

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			sb.WriteRune(halfBlock(top, bot))
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}

func halfBlock(top, bot bool) rune {
	switch {
	case top && bot:
		return '\u2588' // █
	case top:
		return '\u2580' // ▀
	case bot:
		return '\u2584' // ▄
	default:
		return ' '
	}
}
