package views

import (
	"fmt"
	"image"
	"net/url"
	"strings"
	"sync"

	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/rivo/tview"
)

const avatarWidth = 16

// IpmView renders the pending IPM. It implements ipm.View; every call is
// routed through queue so a presenter may drive it from any goroutine.
type IpmView struct {
	*tview.Flex
	theme  *ui.Theme
	avatar *tview.TextView
	body   *tview.TextView
	queue  func(func())

	onDismissed func()
	onDeepLink  func(*url.URL)

	mu      sync.RWMutex
	current *ipm.Payload
}

var _ ipm.View = (*IpmView)(nil)

// NewIpmView creates an IPM view. queue runs UI updates, typically
// tview.Application.QueueUpdateDraw.
func NewIpmView(theme *ui.Theme, queue func(func())) *IpmView {
	avatar := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	avatar.SetBackgroundColor(theme.BgColor)

	body := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetTextAlign(tview.AlignCenter)
	body.SetBackgroundColor(theme.BgColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(avatar, 0, 0, false).
		AddItem(body, 0, 1, true)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.IpmBorderColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(" In-Product Message ")
	flex.SetTitleColor(theme.TitleColor)

	if queue == nil {
		queue = func(f func()) { f() }
	}
	return &IpmView{
		Flex:   flex,
		theme:  theme,
		avatar: avatar,
		body:   body,
		queue:  queue,
	}
}

// Name implements Component.
func (iv *IpmView) Name() string { return "IPM" }

// SetOnDismissed sets the callback run after the IPM is dismissed.
func (iv *IpmView) SetOnDismissed(fn func()) {
	iv.onDismissed = fn
}

// SetOnDeepLink sets the callback that launches an action deep link.
func (iv *IpmView) SetOnDeepLink(fn func(*url.URL)) {
	iv.onDeepLink = fn
}

// Current returns the displayed payload, or nil.
func (iv *IpmView) Current() *ipm.Payload {
	iv.mu.RLock()
	defer iv.mu.RUnlock()
	return iv.current
}

func (iv *IpmView) setCurrent(p *ipm.Payload) {
	iv.mu.Lock()
	iv.current = p
	iv.mu.Unlock()
}

func (iv *IpmView) DisplayIpm(p ipm.Payload) {
	iv.queue(func() {
		iv.setCurrent(&p)
		iv.render(p)
	})
}

func (iv *IpmView) DisplayAvatar(img image.Image) {
	iv.queue(func() {
		iv.avatar.Clear()
		_, _ = fmt.Fprint(iv.avatar, renderImage(img, avatarWidth, colorTag(iv.theme.BgColor)))
		iv.ResizeItem(iv.avatar, avatarWidth/2+1, 0)
	})
}

func (iv *IpmView) HideAvatar() {
	iv.queue(func() {
		iv.avatar.Clear()
		iv.ResizeItem(iv.avatar, 0, 0)
	})
}

func (iv *IpmView) DismissIpm() {
	iv.queue(func() {
		iv.setCurrent(nil)
		iv.body.Clear()
		iv.avatar.Clear()
		if iv.onDismissed != nil {
			iv.onDismissed()
		}
	})
}

func (iv *IpmView) LaunchActionDeepLink(u *url.URL) {
	iv.queue(func() {
		if iv.onDeepLink != nil {
			iv.onDeepLink(u)
		}
	})
}

func (iv *IpmView) render(p ipm.Payload) {
	fg := colorTag(iv.theme.FgColor)
	bg := pickColor(p.BackgroundColor, colorTag(iv.theme.BgColor))
	headingColor := pickColor(p.HeadingFontColor, colorTag(iv.theme.TitleColor))
	messageColor := pickColor(p.MessageFontColor, fg)
	buttonBg := pickColor(p.ButtonBackgroundColor, colorTag(iv.theme.IpmButtonBg))
	buttonFg := pickColor(p.ButtonTextColor, colorTag(iv.theme.IpmButtonFg))

	button := p.ButtonText
	if strings.TrimSpace(button) == "" {
		button = "OK"
	}

	iv.body.Clear()
	iv.body.SetBackgroundColor(tcellColor(bg))
	_, _ = fmt.Fprintf(iv.body, "\n[%s::b]%s[-:-:-]\n\n[%s]%s[-]\n\n[%s:%s:b]  %s  [-:-:-]\n",
		headingColor, sanitizeForTerminal(p.Heading),
		messageColor, sanitizeForTerminal(p.Message),
		buttonFg, buttonBg, sanitizeForTerminal(button),
	)
}
