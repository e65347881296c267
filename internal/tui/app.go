package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/push"
	"github.com/matheus3301/connect/internal/rpc"
	"github.com/matheus3301/connect/internal/tui/client"
	"github.com/matheus3301/connect/internal/tui/keys"
	"github.com/matheus3301/connect/internal/tui/model"
	"github.com/matheus3301/connect/internal/tui/ui"
	"github.com/matheus3301/connect/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	pageHome       = "home"
	pageSettings   = "settings"
	pageIpm        = "ipm"
	pageTray       = "notifications"
	pageDeepLink   = "deeplink"
	pageHelp       = "help"
	pageBackground = "background"
)

const callTimeout = 3 * time.Second

// screenFor maps a page to the host screen it reports. The IPM page reports
// as displayScreen; the background overlay is no screen at all.
func screenFor(page, displayScreen string) string {
	switch page {
	case pageIpm:
		return displayScreen
	case pageBackground:
		return ""
	}
	return page
}

// Options configures the host simulator.
type Options struct {
	Profile       string
	DisplayScreen string
	Logger        *zap.Logger
}

// App is a simulated host application: its pages are host screens whose
// RESUMED/PAUSED events are reported to the daemon, and it renders IPMs the
// daemon navigates to.
type App struct {
	app        *tview.Application
	root       *tview.Flex
	pages      *ui.Pages
	theme      *ui.Theme
	crumbs     *ui.Crumbs
	menu       *ui.Menu
	info       *ui.ProfileInfo
	logo       *ui.Logo
	flash      *ui.FlashModel
	flashBar   *ui.FlashBar
	prompt     *ui.Prompt
	registry   *keys.Registry
	components map[string]ui.Component

	grpc      *client.Client
	vm        *model.ViewModel
	remote    *model.RemoteIpm
	presenter *ipm.Presenter
	ipmView   *views.IpmView
	tray      *views.TrayView
	deepLink  *views.DeepLinkView

	displayScreen string
	logger        *zap.Logger

	// screen is the host screen last reported RESUMED. UI goroutine only.
	screen        string
	lifecycle     chan foreground.Event
	lifecycleDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the host simulator over a daemon connection.
func NewApp(c *client.Client, opts Options) *App {
	if opts.DisplayScreen == "" {
		opts.DisplayScreen = ipm.DefaultDisplayScreen
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:           tview.NewApplication(),
		pages:         ui.NewPages(),
		theme:         theme,
		crumbs:        ui.NewCrumbs(theme),
		menu:          ui.NewMenu(theme),
		info:          ui.NewProfileInfo(theme),
		logo:          ui.NewLogo(theme),
		flash:         ui.NewFlashModel(),
		flashBar:      ui.NewFlashBar(theme),
		prompt:        ui.NewPrompt(theme, commandNames...),
		registry:      keys.NewRegistry(),
		components:    make(map[string]ui.Component),
		grpc:          c,
		vm:            model.NewViewModel(c.Ipm),
		tray:          views.NewTrayView(theme),
		deepLink:      views.NewDeepLinkView(theme),
		displayScreen: opts.DisplayScreen,
		logger:        opts.Logger.Named("tui"),
		lifecycle:     make(chan foreground.Event, 64),
		lifecycleDone: make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
	a.remote = model.NewRemoteIpm(c.Ipm, a.flash.Err)
	a.ipmView = views.NewIpmView(theme, func(f func()) { a.app.QueueUpdateDraw(f) })
	a.presenter = ipm.NewPresenter(a.ipmView, a.remote, a.logger)

	a.info.Update(&ui.ProfileData{Profile: opts.Profile})
	a.setupPages()
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	a.pages.Reset(pageHome)
	return a
}

func (a *App) addPage(name string, c ui.Component) {
	a.components[name] = c
	a.pages.AddPage(name, c, true, false)
}

func (a *App) setupPages() {
	home := views.NewHostView(a.theme, pageHome, "The host application's main screen. In-product messages arriving while it is showing are displayed once it has settled.")
	settings := views.NewHostView(a.theme, pageSettings, "A secondary host screen. Switching screens reports PAUSED for the old one and RESUMED for the new one.")
	help := views.NewHelpView(a.theme)

	a.addPage(pageHome, home)
	a.addPage(pageSettings, settings)
	a.addPage(pageIpm, a.ipmView)
	a.addPage(pageTray, a.tray)
	a.addPage(pageDeepLink, a.deepLink)
	a.addPage(pageHelp, help)

	background := tview.NewModal().
		SetText("The host application is in the background.\n\nPress any key to bring it back.")
	background.SetBackgroundColor(a.theme.BgColor)
	a.pages.AddPage(pageBackground, background, true, false)

	a.pages.SetOnChange(a.onStackChange)
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("home", &keys.Action{
		Key: tcell.KeyRune, Rune: '1',
		Description: "Home",
		Handler:     func() { a.navigate(pageHome) },
	})
	a.registry.AddGlobal("settings", &keys.Action{
		Key: tcell.KeyRune, Rune: '2',
		Description: "Settings",
		Handler:     func() { a.navigate(pageSettings) },
	})
	a.registry.AddGlobal("notifications", &keys.Action{
		Key: tcell.KeyRune, Rune: 'n',
		Description: "Notifications",
		Handler: func() {
			a.navigate(pageTray)
			go a.refreshTray()
		},
	})
	a.registry.AddGlobal("background", &keys.Action{
		Key: tcell.KeyRune, Rune: 'b',
		Description: "Background",
		Handler:     func() { a.pages.Push(pageBackground) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "Command",
		Handler:     func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal("help", &keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "Help",
		Handler:     func() { a.navigate(pageHelp) },
	})
	a.registry.AddGlobal("back", &keys.Action{
		Key:         tcell.KeyEscape,
		Description: "Back",
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.pages.Pop()
			}
		},
	})
	a.registry.AddGlobal("quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "Quit",
		Handler: func() {
			if a.pages.Depth() > 1 {
				a.pages.Pop()
				return
			}
			a.Stop()
		},
	})

	a.registry.AddView(pageIpm, "action", &keys.Action{
		Key: tcell.KeyRune, Rune: 'a',
		Description: "Action",
		Handler: func() {
			p := a.ipmView.Current()
			if p == nil {
				return
			}
			go a.presenter.OnAction(p.Action)
		},
	})
	a.registry.AddView(pageIpm, "navigate_back", &keys.Action{
		Key:         tcell.KeyEscape,
		Description: "Navigate back",
		Handler:     func() { a.dismissIpm(ipm.NavigateBack) },
	})
	a.registry.AddView(pageIpm, "tap_outside", &keys.Action{
		Key: tcell.KeyRune, Rune: 't',
		Description: "Tap outside",
		Handler:     func() { a.dismissIpm(ipm.TapOutside) },
	})
	a.registry.AddView(pageIpm, "slide_down", &keys.Action{
		Key: tcell.KeyRune, Rune: 's',
		Description: "Slide down",
		Handler:     func() { a.dismissIpm(ipm.SlideDown) },
	})
	// Leaving the IPM page without a gesture would strand the message.
	a.registry.AddView(pageIpm, "quit", &keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "Navigate back",
		Handler:     func() { a.dismissIpm(ipm.NavigateBack) },
		Hidden:      true,
	})

	a.registry.AddView(pageTray, "open", &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "Open link",
		Handler:     a.openSelectedNotification,
	})
	a.registry.AddView(pageTray, "filter", &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Description: "Filter",
		Handler:     func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageTray, "permission", &keys.Action{
		Key: tcell.KeyRune, Rune: 'p',
		Description: "Toggle permission",
		Handler:     func() { go a.togglePermission() },
	})
}

func (a *App) setupCallbacks() {
	a.ipmView.SetOnDismissed(func() {
		a.pages.Remove(pageIpm)
	})
	a.ipmView.SetOnDeepLink(a.openDeepLink)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.handleCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.tray.SetFilter(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.tray.SetFilter("")
		}
		a.hidePrompt()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 26, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Let the prompt handle all keys while it is open.
		if a.app.GetFocus() == a.prompt.InputField {
			return event
		}

		current := a.pages.Current()
		if current == pageBackground {
			a.pages.Pop()
			return nil
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

func (a *App) onStackChange(stack []string) {
	top := ""
	if len(stack) > 0 {
		top = stack[len(stack)-1]
	}
	a.reportScreen(screenFor(top, a.displayScreen))

	titles := make([]string, len(stack))
	for i, name := range stack {
		titles[i] = name
		if c, ok := a.components[name]; ok {
			titles[i] = c.Name()
		}
	}
	a.crumbs.Update(titles, a.screen)
	a.menu.Update(a.registry.Hints(top))
	a.app.SetFocus(a.pages)
}

// reportScreen queues PAUSED for the previous host screen and RESUMED for next.
func (a *App) reportScreen(next string) {
	if next == a.screen {
		return
	}
	prev := a.screen
	a.screen = next
	if prev != "" {
		a.queueLifecycle(foreground.Event{Kind: foreground.Paused, Screen: prev})
	}
	if next != "" {
		a.queueLifecycle(foreground.Event{Kind: foreground.Resumed, Screen: next})
	}
}

// queueLifecycle never blocks the UI. While the daemon is slow to answer and
// the queue is full, the event is dropped with a warning.
func (a *App) queueLifecycle(evt foreground.Event) bool {
	select {
	case a.lifecycle <- evt:
		return true
	default:
		a.flash.Warn(fmt.Sprintf("daemon busy, dropped %s %s", evt.Kind, evt.Screen))
		return false
	}
}

// lifecycleLoop sends screen events to the daemon in order.
func (a *App) lifecycleLoop() {
	defer close(a.lifecycleDone)
	for evt := range a.lifecycle {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		if err := a.vm.ReportLifecycle(ctx, evt.Kind, evt.Screen); err != nil {
			a.flash.Err(fmt.Errorf("report %s %s: %w", evt.Kind, evt.Screen, err))
		}
		cancel()
	}
}

func (a *App) navigate(page string) {
	if a.pages.Current() == page {
		return
	}
	if page == pageHome {
		a.pages.Reset(pageHome)
		return
	}
	a.pages.Remove(page)
	a.pages.Push(page)
}

func (a *App) openScreen(name string) {
	if name == "" || strings.ContainsAny(name, " \t") {
		a.flash.Warn("usage: :screen <name>")
		return
	}
	switch name {
	case pageIpm, pageTray, pageDeepLink, pageHelp, pageBackground:
		a.flash.Warn(fmt.Sprintf("%q is reserved", name))
		return
	}
	if _, ok := a.components[name]; !ok {
		a.addPage(name, views.NewHostView(a.theme, name, "A custom host screen."))
	}
	a.navigate(name)
}

func (a *App) openSelectedNotification() {
	n, ok := a.tray.Selected()
	if !ok {
		return
	}
	u, ok := ipm.ResolveDeepLink(n.DeepLink)
	if !ok {
		a.flash.Warn("notification has no deep link")
		return
	}
	a.openDeepLink(u)
}

func (a *App) openDeepLink(u *url.URL) {
	a.deepLink.ShowLink(u)
	a.navigate(pageDeepLink)
}

func (a *App) dismissIpm(reason ipm.DismissReason) {
	go a.presenter.OnDismiss(reason)
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.pages)
}

func (a *App) handleCommand(cmd Command) {
	switch cmd.Name {
	case "push":
		data, err := push.ParsePairs(cmd.Fields())
		if err != nil {
			a.flash.Err(err)
			return
		}
		go a.deliver(data)
	case "ipm":
		data := sampleIpm(cmd.Fields())
		if data[ipm.KeyInstanceID] == "" {
			id := uuid.NewString()[:8]
			data[ipm.KeyInstanceID] = id
			data[ipm.KeyAction] = "connect://ipm/" + id
		}
		go a.deliver(data)
	case "screen":
		a.openScreen(strings.TrimSpace(cmd.Args))
	case "notifications", "notif":
		switch strings.ToLower(cmd.Args) {
		case "on":
			go a.setPermission(true)
		case "off":
			go a.setPermission(false)
		default:
			a.flash.Warn("usage: :notifications on|off")
		}
	case "help", "h":
		a.navigate(pageHelp)
	case "quit", "q":
		a.Stop()
	default:
		a.flash.Warn("unknown command: " + cmd.Name)
	}
}

func (a *App) deliver(data map[string]string) {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	kind, err := a.vm.Deliver(ctx, data)
	if err != nil {
		a.flash.Err(err)
		return
	}
	a.flash.Info("delivered as " + kind)
}

func (a *App) togglePermission() {
	st := a.vm.Status()
	enabled := st == nil || !st.NotificationsEnabled
	a.setPermission(enabled)
}

func (a *App) setPermission(enabled bool) {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.SetNotificationsEnabled(ctx, enabled); err != nil {
		a.flash.Err(err)
		return
	}
	if enabled {
		a.flash.Info("notifications enabled")
	} else {
		a.flash.Warn("notifications disabled")
	}
	a.refreshStatus()
}

// showIpm loads the pending IPM and brings the IPM page up.
func (a *App) showIpm() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.remote.Load(ctx); err != nil {
		a.flash.Err(err)
		return
	}
	if a.remote.Ipm() == nil {
		return
	}
	a.app.QueueUpdateDraw(func() {
		if a.pages.Current() != pageIpm {
			a.navigate(pageIpm)
		}
	})
	a.presenter.OnIpmReceived()
}

func (a *App) handleEvent(evt *structpb.Struct) {
	id := rpc.String(evt, "instance_id")
	switch rpc.String(evt, "kind") {
	case bus.KindIpmNavigate:
		a.showIpm()
	case bus.KindIpmCleared:
		// Cleared elsewhere, for example by connectctl.
		if cur := a.ipmView.Current(); cur != nil && cur.InstanceID == id {
			a.ipmView.DismissIpm()
		}
	case bus.KindIpmPurged:
		a.flash.Warn(fmt.Sprintf("ipm %s dropped, another ipm is on screen", id))
	case bus.KindNotificationPosted:
		n := model.ParseNotification(evt.GetFields()["notification"].GetStructValue())
		a.flash.Info("notification: " + n.Title)
		a.refreshTray()
	case bus.KindIpmStatusChanged:
		a.refreshStatus()
	}
}

func (a *App) watchLoop() {
	for {
		err := a.watch()
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Warn("navigation stream ended", zap.Error(err))
		a.flash.Warn("navigation stream lost, retrying")
		select {
		case <-time.After(2 * time.Second):
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) watch() error {
	stream, err := a.grpc.Ipm.WatchNavigation(a.ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	a.app.QueueUpdateDraw(func() { a.logo.SetConnected(true) })
	defer a.app.QueueUpdateDraw(func() { a.logo.SetConnected(false) })
	for {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		a.handleEvent(evt)
	}
}

func (a *App) refreshStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		return
	}
	st := a.vm.Status()
	a.app.QueueUpdateDraw(func() {
		a.info.Update(&ui.ProfileData{
			Profile:       st.Profile,
			State:         st.State,
			InstanceID:    st.InstanceID,
			Screen:        st.Screen,
			Foreground:    st.Foreground,
			Notifications: st.NotificationsEnabled,
			PendingJobs:   st.PendingJobs,
			QueuedEvents:  st.QueuedEvents,
			Uptime:        st.Uptime,
		})
		a.tray.SetEnabled(st.NotificationsEnabled)
	})
}

func (a *App) refreshTray() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.vm.LoadNotifications(ctx, 100); err != nil {
		a.flash.Err(err)
		return
	}
	list := a.vm.Notifications()
	a.app.QueueUpdateDraw(func() {
		a.tray.Update(list)
	})
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refreshStatus()
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.GetMessage())
			})
		case msg := <-a.flash.Watch():
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(&msg)
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the TUI application and blocks until it exits. On exit the
// current host screen is reported PAUSED.
func (a *App) Run() error {
	go a.lifecycleLoop()
	go a.watchLoop()
	go a.refreshLoop()
	go func() {
		a.refreshStatus()
		a.refreshTray()
		// An IPM may already be waiting for this host.
		a.showIpm()
	}()

	err := a.app.Run()

	a.reportScreen("")
	close(a.lifecycle)
	select {
	case <-a.lifecycleDone:
	case <-time.After(callTimeout):
	}
	a.cancel()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.app.Stop()
}
