package model

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/matheus3301/connect/internal/avatar"
	"github.com/matheus3301/connect/internal/foreground"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeDaemon struct {
	ipm       *structpb.Struct
	status    *structpb.Struct
	list      *structpb.ListValue
	err       error
	pushed    map[string]string
	lifecycle map[string]string
	dismissed string
	actions   int
	enabled   *bool
}

func (f *fakeDaemon) DeliverPush(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	f.pushed = rpc.StringMap(in)
	return rpc.StructFromStrings(map[string]string{"kind": "IPM"}), f.err
}

func (f *fakeDaemon) ReportLifecycle(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	f.lifecycle = rpc.StringMap(in)
	return &emptypb.Empty{}, f.err
}

func (f *fakeDaemon) GetIpm(context.Context, *emptypb.Empty, ...grpc.CallOption) (*structpb.Struct, error) {
	if f.ipm == nil {
		return &structpb.Struct{}, f.err
	}
	return f.ipm, f.err
}

func (f *fakeDaemon) HandleAction(context.Context, *emptypb.Empty, ...grpc.CallOption) (*emptypb.Empty, error) {
	f.actions++
	return &emptypb.Empty{}, f.err
}

func (f *fakeDaemon) HandleDismiss(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	f.dismissed = rpc.String(in, "reason")
	return &emptypb.Empty{}, f.err
}

func (f *fakeDaemon) GetStatus(context.Context, *emptypb.Empty, ...grpc.CallOption) (*structpb.Struct, error) {
	return f.status, f.err
}

func (f *fakeDaemon) ListNotifications(context.Context, *wrapperspb.Int32Value, ...grpc.CallOption) (*structpb.ListValue, error) {
	return f.list, f.err
}

func (f *fakeDaemon) SetNotificationsEnabled(_ context.Context, in *wrapperspb.BoolValue, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	v := in.GetValue()
	f.enabled = &v
	return &emptypb.Empty{}, f.err
}

func TestLoadStatus(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"profile":               "main",
		"state":                 "PENDING_BACKGROUND",
		"instance_id":           "abc123",
		"foreground":            false,
		"screen":                "home",
		"notifications_enabled": true,
		"pending_jobs":          1,
		"queued_events":         3,
		"uptime_ms":             1500,
	})
	require.NoError(t, err)
	vm := NewViewModel(&fakeDaemon{status: s})

	require.NoError(t, vm.LoadStatus(context.Background()))
	st := vm.Status()
	require.NotNil(t, st)
	assert.Equal(t, "main", st.Profile)
	assert.Equal(t, "PENDING_BACKGROUND", st.State)
	assert.Equal(t, "abc123", st.InstanceID)
	assert.True(t, st.NotificationsEnabled)
	assert.Equal(t, 1, st.PendingJobs)
	assert.Equal(t, 3, st.QueuedEvents)
	assert.Equal(t, 1500*time.Millisecond, st.Uptime)
}

func TestLoadNotifications(t *testing.T) {
	n, err := structpb.NewStruct(map[string]any{
		"notification_id":   96354,
		"instance_id":       "abc",
		"title":             "Sale",
		"body":              "Today only",
		"deep_link":         "connect://sale",
		"posted_at_unix_ms": 1700000000000,
	})
	require.NoError(t, err)
	vm := NewViewModel(&fakeDaemon{list: &structpb.ListValue{Values: []*structpb.Value{structpb.NewStructValue(n)}}})

	require.NoError(t, vm.LoadNotifications(context.Background(), 10))
	list := vm.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, int32(96354), list[0].NotificationID)
	assert.Equal(t, "connect://sale", list[0].DeepLink)
	assert.Equal(t, time.UnixMilli(1700000000000), list[0].PostedAt)
}

func TestDeliverAndLifecycle(t *testing.T) {
	d := &fakeDaemon{}
	vm := NewViewModel(d)

	kind, err := vm.Deliver(context.Background(), map[string]string{"_oid": "x", "type": "ipm", "ttl": "5"})
	require.NoError(t, err)
	assert.Equal(t, "IPM", kind)
	assert.Equal(t, "x", d.pushed["_oid"])

	require.NoError(t, vm.ReportLifecycle(context.Background(), foreground.Resumed, "settings"))
	assert.Equal(t, map[string]string{"event": "RESUMED", "screen": "settings"}, d.lifecycle)

	require.NoError(t, vm.SetNotificationsEnabled(context.Background(), false))
	require.NotNil(t, d.enabled)
	assert.False(t, *d.enabled)
}

func TestRemoteIpmLoadsPayloadAndAvatar(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	png, err := avatar.EncodePNG(img)
	require.NoError(t, err)

	fields := ipm.Payload{InstanceID: "abc123", TimeToLive: 30 * time.Second, Heading: "Hi", Action: "connect://x"}.Fields()
	fields[rpc.AvatarField] = base64.StdEncoding.EncodeToString(png)
	d := &fakeDaemon{ipm: rpc.StructFromStrings(fields)}
	m := NewRemoteIpm(d, nil)

	require.NoError(t, m.Load(context.Background()))
	require.NotNil(t, m.Ipm())
	assert.Equal(t, "abc123", m.Ipm().InstanceID)
	assert.Equal(t, 30*time.Second, m.Ipm().TimeToLive)
	assert.NotNil(t, m.Avatar())

	m.OnDismiss(ipm.SlideDown)
	assert.Equal(t, string(ipm.SlideDown), d.dismissed)
	assert.Nil(t, m.Ipm())
	assert.Nil(t, m.Avatar())
}

func TestRemoteIpmEmpty(t *testing.T) {
	m := NewRemoteIpm(&fakeDaemon{}, nil)
	require.NoError(t, m.Load(context.Background()))
	assert.Nil(t, m.Ipm())
	assert.Nil(t, m.Avatar())
}

func TestRemoteIpmReportsFailedCalls(t *testing.T) {
	var got []error
	d := &fakeDaemon{err: errors.New("daemon gone")}
	m := NewRemoteIpm(d, func(err error) { got = append(got, err) })

	m.OnAction()
	m.OnDismiss(ipm.TapOutside)

	assert.Equal(t, 1, d.actions)
	assert.Len(t, got, 2)
}
