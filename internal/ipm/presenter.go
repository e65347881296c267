package ipm

import (
	"image"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// View renders an IPM on the host.
type View interface {
	DisplayIpm(p Payload)
	DisplayAvatar(img image.Image)
	HideAvatar()
	DismissIpm()
	LaunchActionDeepLink(u *url.URL)
}

// Presenter binds a View to a Model.
type Presenter struct {
	view   View
	model  Model
	logger *zap.Logger
}

// NewPresenter creates a presenter for view backed by model.
func NewPresenter(view View, model Model, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{view: view, model: model, logger: logger.Named("presenter")}
}

// OnIpmReceived renders the pending IPM, or dismisses the view when nothing
// is pending anymore.
func (p *Presenter) OnIpmReceived() {
	payload := p.model.Ipm()
	if payload == nil {
		p.logger.Debug("no pending ipm, dismissing view")
		p.view.DismissIpm()
		return
	}

	if img := p.model.Avatar(); img != nil {
		p.view.DisplayAvatar(img)
	} else {
		p.view.HideAvatar()
	}
	p.view.DisplayIpm(*payload)
}

// OnAction handles the action button.
func (p *Presenter) OnAction(action string) {
	p.model.OnAction()

	u, ok := ResolveDeepLink(action)
	if !ok {
		p.logger.Debug("action is not a deep link", zap.String("action", action))
		p.view.DismissIpm()
		return
	}
	p.view.LaunchActionDeepLink(u)
	p.view.DismissIpm()
}

// OnDismiss handles a dismissal gesture.
func (p *Presenter) OnDismiss(reason DismissReason) {
	p.model.OnDismiss(reason)
	p.view.DismissIpm()
}

// ResolveDeepLink parses action as an absolute URL. Anything without a scheme
// is not launchable.
func ResolveDeepLink(action string) (*url.URL, bool) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, false
	}
	u, err := url.Parse(action)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}
