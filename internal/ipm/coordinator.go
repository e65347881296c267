package ipm

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/status"
	"go.uber.org/zap"
)

// DefaultDisplayScreen is the host screen that renders IPMs.
const DefaultDisplayScreen = "ipm"

// Store holds the single pending IPM and its avatar.
type Store interface {
	Get() *Payload
	Set(p *Payload)
	Avatar() image.Image
	SetAvatar(src io.Reader)
	WarmUp()
	Clear()
}

// ForegroundTracker reports host foreground state and settles callbacks.
type ForegroundTracker interface {
	IsForeground() bool
	IsCurrentScreen(screen string) bool
	AddCallback(cb foreground.Callback)
	RemoveCallback(cb foreground.Callback)
}

// Scheduler arms and cancels time-to-live jobs keyed by instance id.
type Scheduler interface {
	Schedule(name string, d time.Duration)
	Cancel(name string)
}

// MetricTracker reports IPM metrics without blocking.
type MetricTracker interface {
	TrackDisplayed(instanceID string)
	TrackAction(instanceID string)
	TrackDismiss(instanceID string, reason DismissReason)
}

// AvatarFetcher downloads avatar images.
type AvatarFetcher interface {
	FetchAvatar(ctx context.Context, url string) (io.ReadCloser, error)
}

// Navigator brings the IPM screen up on the host.
type Navigator interface {
	ShowIpm(instanceID string)
}

// PushProcessor displays a flat system push payload.
type PushProcessor interface {
	Process(ctx context.Context, data map[string]string)
}

// Deps are the collaborators of a Coordinator. Machine and Bus may be nil.
type Deps struct {
	Store     Store
	Tracker   ForegroundTracker
	Scheduler Scheduler
	Metrics   MetricTracker
	Fetcher   AvatarFetcher
	Navigator Navigator
	Fallback  PushProcessor
	Machine   *status.Machine
	Bus       *bus.Bus
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDisplayScreen sets the screen treated as "IPM already showing".
func WithDisplayScreen(screen string) Option {
	return func(c *Coordinator) { c.displayScreen = screen }
}

// WithAsync replaces how settled-foreground work is started. Tests pass a
// function that runs inline.
func WithAsync(fn func(func())) Option {
	return func(c *Coordinator) { c.async = fn }
}

// Coordinator decides the fate of each arriving IPM: show it now, hold it
// until the host settles in the foreground, or fall back to a system push
// when its time-to-live runs out. At most one IPM is pending at a time.
type Coordinator struct {
	// mu serializes whole transitions.
	mu sync.Mutex
	Deps
	displayScreen string
	async         func(func())
	logger        *zap.Logger

	callback *foregroundCallback // registered while an IPM waits in the background
}

// NewCoordinator wires a Coordinator over deps.
func NewCoordinator(deps Deps, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		Deps:          deps,
		displayScreen: DefaultDisplayScreen,
		async:         func(f func()) { go f() },
		logger:        logger.Named("coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartIpm takes ownership of a newly arrived IPM.
func (c *Coordinator) StartIpm(ctx context.Context, p Payload) {
	avatar := c.fetchAvatar(ctx, p.Logo)
	if avatar != nil {
		defer func() {
			if err := avatar.Close(); err != nil {
				c.logger.Debug("avatar stream close failed", zap.Error(err))
			}
		}()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logger.With(zap.String("instance_id", p.InstanceID))

	if c.Tracker.IsForeground() {
		if c.Tracker.IsCurrentScreen(c.displayScreen) {
			log.Info("ipm purged, another ipm is on screen")
			c.Bus.Emit(bus.KindIpmPurged, p.InstanceID)
			return
		}

		log.Info("host in foreground, displaying ipm")
		c.disarmLocked()
		c.save(&p, avatar)
		c.Store.WarmUp()
		c.Metrics.TrackDisplayed(p.InstanceID)
		c.show(p.InstanceID)
		c.transition(status.PendingForeground, p.InstanceID)
		return
	}

	log.Info("host in background, waiting for foreground", zap.Duration("ttl", p.TimeToLive))
	if prev := c.Store.Get(); prev != nil {
		log.Info("pending ipm crowded out", zap.String("previous", prev.InstanceID))
		c.Scheduler.Cancel(prev.InstanceID)
	}
	c.save(&p, avatar)
	c.Tracker.AddCallback(c.foregroundCallback())
	c.Scheduler.Schedule(p.InstanceID, p.TimeToLive)
	c.transition(status.PendingBackground, p.InstanceID)
}

// HandleAction records the action-button press and clears the pending IPM.
func (c *Coordinator) HandleAction() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.pendingID()
	c.logger.Debug("ipm action", zap.String("instance_id", id))
	c.disarmLocked()
	c.Metrics.TrackAction(id)
	c.clearLocked(id)
}

// HandleDismiss records a dismissal and clears the pending IPM.
func (c *Coordinator) HandleDismiss(reason DismissReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.pendingID()
	c.logger.Debug("ipm dismissed", zap.String("instance_id", id), zap.String("reason", string(reason)))
	c.disarmLocked()
	c.Metrics.TrackDismiss(id, reason)
	c.clearLocked(id)
}

// OnTimeToLiveEnded turns the pending IPM into a system push. A job for an
// instance that is no longer pending, or for one that is no longer waiting in
// the background, changes nothing.
func (c *Coordinator) OnTimeToLiveEnded(ctx context.Context, instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.Store.Get()
	if p != nil && p.InstanceID != instanceID {
		c.logger.Info("ttl ended for superseded ipm",
			zap.String("instance_id", instanceID),
			zap.String("pending", p.InstanceID))
		return
	}
	// The job fired while the settle handler was displaying the IPM.
	if p != nil && c.callback == nil {
		c.logger.Info("ttl ended for displayed ipm", zap.String("instance_id", instanceID))
		return
	}

	c.removeCallbackLocked()
	if p != nil {
		c.logger.Info("ttl ended, falling back to system push", zap.String("instance_id", instanceID))
		c.Fallback.Process(ctx, FallbackData(*p))
	}
	c.clearLocked(instanceID)
}

// Restore picks up an IPM persisted by a previous run. The host is assumed to
// be in the background, so the IPM waits for the foreground again; its
// time-to-live job is restored by the scheduler. It returns the restored
// instance id, or "" when nothing was pending.
func (c *Coordinator) Restore() string {
	c.Store.WarmUp()

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.Store.Get()
	if p == nil {
		return ""
	}
	c.logger.Info("restored pending ipm", zap.String("instance_id", p.InstanceID))
	c.Tracker.AddCallback(c.foregroundCallback())
	c.transition(status.PendingBackground, p.InstanceID)
	return p.InstanceID
}

// Ipm returns the pending payload, or nil.
func (c *Coordinator) Ipm() *Payload {
	return c.Store.Get()
}

// Avatar returns the pending avatar, or nil.
func (c *Coordinator) Avatar() image.Image {
	return c.Store.Avatar()
}

func (c *Coordinator) onSettledForeground(cb *foregroundCallback) {
	c.Store.WarmUp()

	c.mu.Lock()
	defer c.mu.Unlock()

	// A terminal event or foreground arrival may have beaten us here.
	if c.callback != cb {
		return
	}
	// The host may have left again while warming up.
	if !c.Tracker.IsForeground() {
		return
	}
	c.removeCallbackLocked()

	p := c.Store.Get()
	if p == nil {
		return
	}
	c.logger.Info("host settled in foreground, displaying ipm", zap.String("instance_id", p.InstanceID))
	c.Scheduler.Cancel(p.InstanceID)
	c.Metrics.TrackDisplayed(p.InstanceID)
	c.show(p.InstanceID)
	c.transition(status.PendingForeground, p.InstanceID)
}

func (c *Coordinator) fetchAvatar(ctx context.Context, url string) io.ReadCloser {
	if url == "" || c.Fetcher == nil {
		return nil
	}
	rc, err := c.Fetcher.FetchAvatar(ctx, url)
	if err != nil {
		c.logger.Warn("unable to fetch ipm avatar, there will be none", zap.String("url", url), zap.Error(err))
		return nil
	}
	return rc
}

// save stores p and its avatar. A nil avatar interface stays nil as an
// io.Reader, which deletes the stored avatar.
func (c *Coordinator) save(p *Payload, avatar io.ReadCloser) {
	c.Store.Set(p)
	c.Store.SetAvatar(avatar)
}

func (c *Coordinator) show(instanceID string) {
	if c.Navigator != nil {
		c.Navigator.ShowIpm(instanceID)
	}
	c.Bus.Emit(bus.KindIpmNavigate, instanceID)
}

// disarmLocked drops the background wait for the pending IPM, if any.
func (c *Coordinator) disarmLocked() {
	if c.callback == nil {
		return
	}
	c.removeCallbackLocked()
	if p := c.Store.Get(); p != nil {
		c.Scheduler.Cancel(p.InstanceID)
	}
}

// clearLocked empties the store. It must be the last step of a terminal transition.
func (c *Coordinator) clearLocked(instanceID string) {
	c.Store.Clear()
	c.transition(status.Empty, "")
	c.Bus.Emit(bus.KindIpmCleared, instanceID)
}

func (c *Coordinator) pendingID() string {
	if p := c.Store.Get(); p != nil {
		return p.InstanceID
	}
	return ""
}

func (c *Coordinator) foregroundCallback() *foregroundCallback {
	if c.callback == nil {
		c.callback = &foregroundCallback{c: c}
	}
	return c.callback
}

func (c *Coordinator) removeCallbackLocked() {
	if c.callback == nil {
		return
	}
	c.Tracker.RemoveCallback(c.callback)
	c.callback = nil
}

func (c *Coordinator) transition(to status.State, instanceID string) {
	if c.Machine == nil {
		return
	}
	if err := c.Machine.Transition(to, instanceID); err != nil {
		c.logger.Error("state transition rejected", zap.Error(err))
	}
}

type foregroundCallback struct {
	c *Coordinator
}

func (f *foregroundCallback) OnForeground() {
	f.c.async(func() { f.c.onSettledForeground(f) })
}
