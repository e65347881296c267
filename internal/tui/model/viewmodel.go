package model

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Daemon is the part of the IPM service client the TUI uses.
type Daemon interface {
	DeliverPush(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ReportLifecycle(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetIpm(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	HandleAction(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	HandleDismiss(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListNotifications(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.ListValue, error)
	SetNotificationsEnabled(ctx context.Context, in *wrapperspb.BoolValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

var _ Daemon = (*rpc.IpmServiceClient)(nil)

// Status is the daemon status as shown in the header.
type Status struct {
	Profile              string
	State                string
	InstanceID           string
	Foreground           bool
	Screen               string
	NotificationsEnabled bool
	PendingJobs          int
	QueuedEvents         int
	FailedEvents         int
	Uptime               time.Duration
}

// Notification is one posted system notification.
type Notification struct {
	NotificationID int32
	InstanceID     string
	Title          string
	Body           string
	DeepLink       string
	TestPush       bool
	PostedAt       time.Time
}

// ViewModel caches daemon state for the views.
type ViewModel struct {
	mu sync.RWMutex

	daemon        Daemon
	status        *Status
	notifications []Notification
}

// NewViewModel creates a view model backed by d.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{daemon: d}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.daemon.GetStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	st := parseStatus(resp)
	vm.mu.Lock()
	vm.status = st
	vm.mu.Unlock()
	return nil
}

// LoadNotifications fetches the most recent posted notifications.
func (vm *ViewModel) LoadNotifications(ctx context.Context, limit int) error {
	resp, err := vm.daemon.ListNotifications(ctx, wrapperspb.Int32(int32(limit)))
	if err != nil {
		return err
	}
	list := make([]Notification, 0, len(resp.GetValues()))
	for _, v := range resp.GetValues() {
		list = append(list, ParseNotification(v.GetStructValue()))
	}
	vm.mu.Lock()
	vm.notifications = list
	vm.mu.Unlock()
	return nil
}

// SetNotificationsEnabled grants or revokes the notification permission.
func (vm *ViewModel) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	_, err := vm.daemon.SetNotificationsEnabled(ctx, wrapperspb.Bool(enabled))
	return err
}

// Deliver sends raw push data to the daemon and returns how it was routed.
func (vm *ViewModel) Deliver(ctx context.Context, data map[string]string) (string, error) {
	resp, err := vm.daemon.DeliverPush(ctx, rpc.StructFromStrings(data))
	if err != nil {
		return "", err
	}
	return rpc.String(resp, "kind"), nil
}

// ReportLifecycle tells the daemon a host screen was resumed or paused.
func (vm *ViewModel) ReportLifecycle(ctx context.Context, kind foreground.EventKind, screen string) error {
	_, err := vm.daemon.ReportLifecycle(ctx, rpc.StructFromStrings(map[string]string{
		"event":  string(kind),
		"screen": screen,
	}))
	return err
}

// Status returns the last loaded status, or nil.
func (vm *ViewModel) Status() *Status {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Notifications returns the last loaded notifications.
func (vm *ViewModel) Notifications() []Notification {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.notifications
}

func parseStatus(s *structpb.Struct) *Status {
	f := s.GetFields()
	return &Status{
		Profile:              rpc.String(s, "profile"),
		State:                rpc.String(s, "state"),
		InstanceID:           rpc.String(s, "instance_id"),
		Foreground:           f["foreground"].GetBoolValue(),
		Screen:               rpc.String(s, "screen"),
		NotificationsEnabled: f["notifications_enabled"].GetBoolValue(),
		PendingJobs:          int(f["pending_jobs"].GetNumberValue()),
		QueuedEvents:         int(f["queued_events"].GetNumberValue()),
		FailedEvents:         int(f["failed_events"].GetNumberValue()),
		Uptime:               time.Duration(f["uptime_ms"].GetNumberValue()) * time.Millisecond,
	}
}

// ParseNotification reads a notification struct as sent by the daemon.
func ParseNotification(s *structpb.Struct) Notification {
	f := s.GetFields()
	return Notification{
		NotificationID: int32(f["notification_id"].GetNumberValue()),
		InstanceID:     rpc.String(s, "instance_id"),
		Title:          rpc.String(s, "title"),
		Body:           rpc.String(s, "body"),
		DeepLink:       rpc.String(s, "deep_link"),
		TestPush:       f["test_push"].GetBoolValue(),
		PostedAt:       time.UnixMilli(int64(f["posted_at_unix_ms"].GetNumberValue())),
	}
}
