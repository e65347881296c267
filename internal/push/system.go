package push

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/store"
	"github.com/matheus3301/connect/internal/worker"
	"go.uber.org/zap"
)

// Displayer posts notifications to the host tray.
type Displayer interface {
	Display(p SystemPayload) error
	// Enabled reports whether the user allows notifications at all.
	Enabled() bool
}

// MetricsSender reports system push metrics.
type MetricsSender interface {
	SendReceived(ctx context.Context, instanceID string)
	SendUninstallTracker(ctx context.Context, instanceID string, revoked bool)
}

// Submitter runs tasks in the background.
type Submitter interface {
	Submit(name string, task worker.Task) bool
}

// SystemProcessor displays system pushes and reports them as received.
type SystemProcessor struct {
	displayer Displayer
	metrics   MetricsSender
	exec      Submitter
	logger    *zap.Logger
}

// NewSystemProcessor creates a processor.
func NewSystemProcessor(displayer Displayer, metrics MetricsSender, exec Submitter, logger *zap.Logger) *SystemProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemProcessor{displayer: displayer, metrics: metrics, exec: exec, logger: logger.Named("system_push")}
}

// Process parses data, displays it unless it is a quiet push, and reports
// the received (or uninstall tracker) metric in the background.
func (s *SystemProcessor) Process(_ context.Context, data map[string]string) {
	p, err := ParseSystemPayload(data)
	if err != nil {
		s.logger.Warn("dropping malformed system push", zap.Error(err))
		return
	}
	log := s.logger.With(zap.String("instance_id", p.InstanceID))

	if !p.Quiet {
		if err := s.displayer.Display(p); err != nil {
			log.Error("unable to display notification", zap.Error(err))
		}
	}

	if p.UninstallTracker {
		revoked := !s.displayer.Enabled()
		s.exec.Submit("push.uninstall_tracker", func(ctx context.Context) error {
			s.metrics.SendUninstallTracker(ctx, p.InstanceID, revoked)
			return nil
		})
		return
	}
	s.exec.Submit("push.received", func(ctx context.Context) error {
		s.metrics.SendReceived(ctx, p.InstanceID)
		return nil
	})
}

// NotificationStore records posted notifications and the permission setting.
type NotificationStore interface {
	InsertNotification(n *store.Notification) (int64, error)
	GetValue(key string) (string, error)
	PutValue(key, value string) error
}

// EnabledKey is the kv key holding the notification permission.
const EnabledKey = "notifications_enabled"

// Tray is the daemon's notification tray: posted notifications are recorded
// and announced on the bus for connected hosts.
type Tray struct {
	db      NotificationStore
	bus     *bus.Bus
	enabled atomic.Bool
	logger  *zap.Logger
}

// NewTray creates a tray. Notifications are enabled unless a stored setting
// says otherwise.
func NewTray(db NotificationStore, b *bus.Bus, logger *zap.Logger) *Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tray{db: db, bus: b, logger: logger.Named("tray")}
	t.enabled.Store(true)
	v, err := db.GetValue(EnabledKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		t.logger.Warn("unable to read notification setting", zap.Error(err))
	default:
		t.enabled.Store(v != "false")
	}
	return t
}

// Display records p and publishes it. Nothing is posted while notifications
// are disabled.
func (t *Tray) Display(p SystemPayload) error {
	if !t.Enabled() {
		t.logger.Debug("notifications disabled, not posting", zap.String("instance_id", p.InstanceID))
		return nil
	}
	n := &store.Notification{
		NotificationID: p.NotificationID,
		InstanceID:     p.InstanceID,
		Title:          p.Title,
		Body:           p.Body,
		DeepLink:       p.DeepLink,
		TestPush:       p.TestPush,
		PostedAt:       time.Now().UnixMilli(),
	}
	id, err := t.db.InsertNotification(n)
	if err != nil {
		return err
	}
	n.ID = id
	t.logger.Info("notification posted",
		zap.String("instance_id", p.InstanceID),
		zap.Int32("notification_id", p.NotificationID))
	t.bus.Emit(bus.KindNotificationPosted, *n)
	return nil
}

// Enabled reports whether notifications are allowed.
func (t *Tray) Enabled() bool {
	return t.enabled.Load()
}

// SetEnabled toggles and persists notification permission.
func (t *Tray) SetEnabled(v bool) error {
	if err := t.db.PutValue(EnabledKey, strconv.FormatBool(v)); err != nil {
		return err
	}
	t.enabled.Store(v)
	return nil
}
