package api

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/connect/internal/avatar"
	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/push"
	"github.com/matheus3301/connect/internal/rpc"
	"github.com/matheus3301/connect/internal/status"
	"github.com/matheus3301/connect/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Router dispatches raw push data.
type Router interface {
	Route(ctx context.Context, data map[string]string) (push.Kind, error)
}

// Lifecycle receives host screen events.
type Lifecycle interface {
	Handle(e foreground.Event) error
	IsForeground() bool
	CurrentScreen() string
}

// Coordinator exposes the pending IPM and its terminal transitions.
type Coordinator interface {
	Ipm() *ipm.Payload
	Avatar() image.Image
	HandleAction()
	HandleDismiss(reason ipm.DismissReason)
}

// Records reads persisted notifications and outbox counts.
type Records interface {
	ListNotifications(limit int) ([]store.Notification, error)
	EventCount(status string) (int, error)
}

// Tray holds the notification permission.
type Tray interface {
	Enabled() bool
	SetEnabled(v bool) error
}

// Jobs lists armed time-to-live jobs.
type Jobs interface {
	Pending() map[string]time.Time
}

// IpmService implements connect.v1.IpmService.
type IpmService struct {
	profile     string
	startedAt   time.Time
	router      Router
	lifecycle   Lifecycle
	coordinator Coordinator
	machine     *status.Machine
	records     Records
	tray        Tray
	jobs        Jobs
	bus         *bus.Bus
	logger      *zap.Logger
}

// ServiceDeps are the collaborators of IpmService.
type ServiceDeps struct {
	Profile     string
	Router      Router
	Lifecycle   Lifecycle
	Coordinator Coordinator
	Machine     *status.Machine
	Records     Records
	Tray        Tray
	Jobs        Jobs
	Bus         *bus.Bus
}

// NewIpmService creates the service.
func NewIpmService(d ServiceDeps, logger *zap.Logger) *IpmService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IpmService{
		profile:     d.Profile,
		startedAt:   time.Now(),
		router:      d.Router,
		lifecycle:   d.Lifecycle,
		coordinator: d.Coordinator,
		machine:     d.Machine,
		records:     d.Records,
		tray:        d.Tray,
		jobs:        d.Jobs,
		bus:         d.Bus,
		logger:      logger.Named("api"),
	}
}

var _ rpc.IpmServiceServer = (*IpmService)(nil)

func (s *IpmService) DeliverPush(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	data := rpc.StringMap(in)
	if len(data) == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "push data is empty")
	}

	kind, err := s.router.Route(ctx, data)
	switch {
	case errors.Is(err, push.ErrNotConnectPush), errors.Is(err, ipm.ErrInvalidPayload):
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, grpcstatus.Errorf(codes.Internal, "route push: %v", err)
	}
	return rpc.StructFromStrings(map[string]string{"kind": string(kind)}), nil
}

func (s *IpmService) ReportLifecycle(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	screen := strings.TrimSpace(rpc.String(in, "screen"))
	if screen == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "screen is required")
	}
	evt := foreground.Event{
		Kind:   foreground.EventKind(strings.ToUpper(strings.TrimSpace(rpc.String(in, "event")))),
		Screen: screen,
	}
	if err := s.lifecycle.Handle(evt); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	s.bus.Emit(bus.KindLifecycle, evt)
	return &emptypb.Empty{}, nil
}

func (s *IpmService) GetIpm(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	p := s.coordinator.Ipm()
	if p == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	fields := p.Fields()
	if img := s.coordinator.Avatar(); img != nil {
		data, err := avatar.EncodePNG(img)
		if err != nil {
			s.logger.Warn("unable to encode avatar", zap.Error(err))
		} else {
			fields[rpc.AvatarField] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return rpc.StructFromStrings(fields), nil
}

func (s *IpmService) HandleAction(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.coordinator.HandleAction()
	return &emptypb.Empty{}, nil
}

func (s *IpmService) HandleDismiss(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	reason, err := ipm.ParseDismissReason(rpc.String(in, "reason"))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	s.coordinator.HandleDismiss(reason)
	return &emptypb.Empty{}, nil
}

func (s *IpmService) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	state, instanceID, changedAt := s.machine.Snapshot()

	fields := map[string]*structpb.Value{
		"profile":               structpb.NewStringValue(s.profile),
		"state":                 structpb.NewStringValue(string(state)),
		"instance_id":           structpb.NewStringValue(instanceID),
		"state_changed_at":      structpb.NewStringValue(changedAt.UTC().Format(time.RFC3339)),
		"uptime_ms":             structpb.NewNumberValue(float64(time.Since(s.startedAt).Milliseconds())),
		"foreground":            structpb.NewBoolValue(s.lifecycle.IsForeground()),
		"screen":                structpb.NewStringValue(s.lifecycle.CurrentScreen()),
		"notifications_enabled": structpb.NewBoolValue(s.tray.Enabled()),
		"pending_jobs":          structpb.NewNumberValue(float64(len(s.jobs.Pending()))),
	}
	if n, err := s.records.EventCount("queued"); err == nil {
		fields["queued_events"] = structpb.NewNumberValue(float64(n))
	}
	if n, err := s.records.EventCount("failed"); err == nil {
		fields["failed_events"] = structpb.NewNumberValue(float64(n))
	}
	return &structpb.Struct{Fields: fields}, nil
}

func (s *IpmService) ListNotifications(_ context.Context, in *wrapperspb.Int32Value) (*structpb.ListValue, error) {
	list, err := s.records.ListNotifications(int(in.GetValue()))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list notifications: %v", err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(list))}
	for i := range list {
		out.Values = append(out.Values, structpb.NewStructValue(notificationToStruct(&list[i])))
	}
	return out, nil
}

func (s *IpmService) SetNotificationsEnabled(_ context.Context, in *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	if err := s.tray.SetEnabled(in.GetValue()); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "save setting: %v", err)
	}
	s.logger.Info("notification permission changed", zap.Bool("enabled", in.GetValue()))
	return &emptypb.Empty{}, nil
}

func (s *IpmService) WatchNavigation(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ipmCh, unsubIpm := s.bus.Subscribe("ipm.", 64)
	defer unsubIpm()
	notifCh, unsubNotif := s.bus.Subscribe("notification.", 64)
	defer unsubNotif()

	for {
		var evt bus.Event
		select {
		case evt = <-ipmCh:
		case evt = <-notifCh:
		case <-stream.Context().Done():
			return nil
		}
		if err := stream.Send(s.envelope(evt)); err != nil {
			return err
		}
	}
}

// envelope wraps a bus event for the navigation stream.
func (s *IpmService) envelope(evt bus.Event) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"event_id":            structpb.NewStringValue(uuid.New().String()),
		"profile":             structpb.NewStringValue(s.profile),
		"kind":                structpb.NewStringValue(evt.Kind),
		"occurred_at_unix_ms": structpb.NewNumberValue(float64(evt.Timestamp.UnixMilli())),
	}
	switch p := evt.Payload.(type) {
	case string:
		fields["instance_id"] = structpb.NewStringValue(p)
	case status.StatusChange:
		fields["instance_id"] = structpb.NewStringValue(p.InstanceID)
		fields["from"] = structpb.NewStringValue(string(p.From))
		fields["to"] = structpb.NewStringValue(string(p.To))
	case store.Notification:
		fields["notification"] = structpb.NewStructValue(notificationToStruct(&p))
		fields["instance_id"] = structpb.NewStringValue(p.InstanceID)
	}
	return &structpb.Struct{Fields: fields}
}

func notificationToStruct(n *store.Notification) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":                structpb.NewNumberValue(float64(n.ID)),
		"notification_id":   structpb.NewNumberValue(float64(n.NotificationID)),
		"instance_id":       structpb.NewStringValue(n.InstanceID),
		"title":             structpb.NewStringValue(n.Title),
		"body":              structpb.NewStringValue(n.Body),
		"deep_link":         structpb.NewStringValue(n.DeepLink),
		"test_push":         structpb.NewBoolValue(n.TestPush),
		"posted_at_unix_ms": structpb.NewNumberValue(float64(n.PostedAt)),
	}}
}
