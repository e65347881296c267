package push

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/store"
	"github.com/matheus3301/connect/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) SendReceived(ctx context.Context, id string) {
	m.Called(ctx, id)
}

func (m *mockMetrics) SendUninstallTracker(ctx context.Context, id string, revoked bool) {
	m.Called(ctx, id, revoked)
}

type inlineExec struct{ names []string }

func (e *inlineExec) Submit(name string, task worker.Task) bool {
	e.names = append(e.names, name)
	_ = task(context.Background())
	return true
}

type recordingDisplayer struct {
	shown   []SystemPayload
	enabled bool
	err     error
}

func (d *recordingDisplayer) Display(p SystemPayload) error {
	d.shown = append(d.shown, p)
	return d.err
}

func (d *recordingDisplayer) Enabled() bool { return d.enabled }

type recordingStarter struct {
	mu      sync.Mutex
	started []ipm.Payload
}

func (s *recordingStarter) StartIpm(_ context.Context, p ipm.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, p)
}

type recordingProcessor struct{ data []map[string]string }

func (p *recordingProcessor) Process(_ context.Context, data map[string]string) {
	p.data = append(p.data, data)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data map[string]string
		want Kind
	}{
		{"empty", map[string]string{}, KindUnknown},
		{"foreign push", map[string]string{"title": "hi"}, KindUnknown},
		{"system push", map[string]string{"_oid": "a", "title": "hi"}, KindSystem},
		{"test push without id", map[string]string{"_otm": "true"}, KindSystem},
		{"test push false", map[string]string{"_otm": "false"}, KindUnknown},
		{"ipm", map[string]string{"_oid": "a", "type": "ipm"}, KindIpm},
		{"other type", map[string]string{"_oid": "a", "type": "banner"}, KindSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.data))
		})
	}
}

func TestParseSystemPayload(t *testing.T) {
	p, err := ParseSystemPayload(map[string]string{
		"_oid":     "abc",
		"_onid":    "42",
		"title":    "Title",
		"body":     "Body",
		"_odl":     "connect://x",
		"category": "promo",
		"_silent":  "true",
		"_otm":     "TRUE",
		"_oq":      "nope",
		"coupon":   "SAVE10",
	})
	require.NoError(t, err)
	assert.Equal(t, SystemPayload{
		InstanceID:     "abc",
		NotificationID: 42,
		Title:          "Title",
		Body:           "Body",
		DeepLink:       "connect://x",
		Category:       "promo",
		Silent:         true,
		TestPush:       true,
		Custom:         map[string]string{"coupon": "SAVE10"},
	}, p)
}

func TestParseSystemPayloadDerivesNotificationID(t *testing.T) {
	p, err := ParseSystemPayload(map[string]string{"_oid": "abc"})
	require.NoError(t, err)
	assert.Equal(t, int32(96354), p.NotificationID)
	assert.Nil(t, p.Custom)
}

func TestParseSystemPayloadRejectsBadNotificationID(t *testing.T) {
	_, err := ParseSystemPayload(map[string]string{"_oid": "abc", "_onid": "99999999999"})
	assert.ErrorIs(t, err, ipm.ErrInvalidPayload)
}

func TestFallbackDataParsesAsSystemPush(t *testing.T) {
	data := ipm.FallbackData(ipm.Payload{InstanceID: "abc123", Heading: "H", Message: "M", Action: "connect://a"})

	assert.Equal(t, KindSystem, Classify(data))
	p, err := ParseSystemPayload(data)
	require.NoError(t, err)
	assert.Equal(t, "abc123", p.InstanceID)
	assert.Equal(t, ipm.NotificationID("abc123"), p.NotificationID)
	assert.Equal(t, "H", p.Title)
	assert.Equal(t, "M", p.Body)
	assert.Equal(t, "connect://a", p.DeepLink)
	assert.Nil(t, p.Custom)
}

func TestRouterRoutesIpm(t *testing.T) {
	starter := &recordingStarter{}
	system := &recordingProcessor{}
	r := NewRouter(starter, system, nil)

	kind, err := r.Route(context.Background(), map[string]string{"_oid": "i1", "type": "ipm", "ttl": "30", "heading": "Hi"})

	require.NoError(t, err)
	assert.Equal(t, KindIpm, kind)
	require.Len(t, starter.started, 1)
	assert.Equal(t, ipm.Payload{InstanceID: "i1", TimeToLive: 30 * time.Second, Heading: "Hi"}, starter.started[0])
	assert.Empty(t, system.data)
}

func TestRouterRejectsMalformedIpm(t *testing.T) {
	starter := &recordingStarter{}
	r := NewRouter(starter, &recordingProcessor{}, nil)

	_, err := r.Route(context.Background(), map[string]string{"_oid": "i1", "type": "ipm", "ttl": "later"})

	assert.ErrorIs(t, err, ipm.ErrInvalidPayload)
	assert.Empty(t, starter.started)
}

func TestRouterRoutesSystemAndIgnoresForeign(t *testing.T) {
	system := &recordingProcessor{}
	r := NewRouter(&recordingStarter{}, system, nil)

	kind, err := r.Route(context.Background(), map[string]string{"_oid": "s1", "title": "T"})
	require.NoError(t, err)
	assert.Equal(t, KindSystem, kind)
	assert.Len(t, system.data, 1)

	kind, err = r.Route(context.Background(), map[string]string{"title": "T"})
	assert.ErrorIs(t, err, ErrNotConnectPush)
	assert.Equal(t, KindUnknown, kind)
	assert.Len(t, system.data, 1)
}

func TestSystemProcessorDisplaysAndSendsReceived(t *testing.T) {
	displayer := &recordingDisplayer{enabled: true}
	metrics := &mockMetrics{}
	metrics.On("SendReceived", mock.Anything, "s1").Once()
	exec := &inlineExec{}

	NewSystemProcessor(displayer, metrics, exec, nil).Process(context.Background(), map[string]string{"_oid": "s1", "title": "T"})

	require.Len(t, displayer.shown, 1)
	assert.Equal(t, "T", displayer.shown[0].Title)
	assert.Equal(t, []string{"push.received"}, exec.names)
	metrics.AssertExpectations(t)
}

func TestSystemProcessorQuietPushNotDisplayed(t *testing.T) {
	displayer := &recordingDisplayer{enabled: true}
	metrics := &mockMetrics{}
	metrics.On("SendReceived", mock.Anything, "q1").Once()

	NewSystemProcessor(displayer, metrics, &inlineExec{}, nil).Process(context.Background(), map[string]string{"_oid": "q1", "_oq": "true"})

	assert.Empty(t, displayer.shown)
	metrics.AssertExpectations(t)
}

func TestSystemProcessorUninstallTracker(t *testing.T) {
	displayer := &recordingDisplayer{enabled: false}
	metrics := &mockMetrics{}
	metrics.On("SendUninstallTracker", mock.Anything, "u1", true).Once()

	NewSystemProcessor(displayer, metrics, &inlineExec{}, nil).Process(context.Background(), map[string]string{"_oid": "u1", "_ogp": "true", "_oq": "true"})

	metrics.AssertExpectations(t)
	metrics.AssertNotCalled(t, "SendReceived", mock.Anything, mock.Anything)
}

func TestSystemProcessorDisplayFailureStillReportsReceived(t *testing.T) {
	displayer := &recordingDisplayer{enabled: true, err: errors.New("tray full")}
	metrics := &mockMetrics{}
	metrics.On("SendReceived", mock.Anything, "f1").Once()

	NewSystemProcessor(displayer, metrics, &inlineExec{}, nil).Process(context.Background(), map[string]string{"_oid": "f1"})

	metrics.AssertExpectations(t)
}

func TestSystemProcessorDropsMalformed(t *testing.T) {
	displayer := &recordingDisplayer{enabled: true}
	exec := &inlineExec{}

	NewSystemProcessor(displayer, &mockMetrics{}, exec, nil).Process(context.Background(), map[string]string{"_oid": "m1", "_onid": "x"})

	assert.Empty(t, displayer.shown)
	assert.Empty(t, exec.names)
}

func TestTrayRecordsAndPublishes(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	events, cancel := b.Subscribe(bus.KindNotificationPosted, 1)
	defer cancel()
	tray := NewTray(db, b, nil)

	require.NoError(t, tray.Display(SystemPayload{InstanceID: "t1", NotificationID: 7, Title: "Hello", DeepLink: "connect://t"}))

	list, err := db.ListNotifications(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].InstanceID)
	assert.Equal(t, int32(7), list[0].NotificationID)
	assert.Equal(t, "connect://t", list[0].DeepLink)

	select {
	case evt := <-events:
		n, ok := evt.Payload.(store.Notification)
		require.True(t, ok)
		assert.Equal(t, list[0].ID, n.ID)
	case <-time.After(time.Second):
		t.Fatal("no notification event")
	}
}

func TestTrayPermissionPersists(t *testing.T) {
	db := testDB(t)
	tray := NewTray(db, nil, nil)
	assert.True(t, tray.Enabled())

	require.NoError(t, tray.SetEnabled(false))
	require.NoError(t, tray.Display(SystemPayload{InstanceID: "off"}))
	list, err := db.ListNotifications(10)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.False(t, NewTray(db, nil, nil).Enabled())
}

func TestParsePairs(t *testing.T) {
	data, err := ParsePairs([]string{"_oid=abc123", "type=ipm", "_odl=connect://x?a=b", "title="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"_oid":  "abc123",
		"type":  "ipm",
		"_odl":  "connect://x?a=b",
		"title": "",
	}, data)

	for _, args := range [][]string{nil, {"novalue"}, {"=x"}} {
		_, err := ParsePairs(args)
		assert.Error(t, err, "args %q", args)
	}
}
