package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Received(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockBackend) Opened(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockBackend) UninstallTracker(ctx context.Context, id string, revoked bool) error {
	return m.Called(id, revoked).Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) TrackEvent(name string, props map[string]any) error {
	return m.Called(name, props).Error(0)
}

// inlineExec runs submitted tasks synchronously and records their names.
type inlineExec struct {
	names []string
}

func (e *inlineExec) Submit(name string, task worker.Task) bool {
	e.names = append(e.names, name)
	_ = task(context.Background())
	return true
}

func TestTrackDisplayedSendsReceivedThenOpenedInOneTask(t *testing.T) {
	be := &mockBackend{}
	var order []string
	be.On("Received", "abc123").Run(func(mock.Arguments) { order = append(order, "received") }).Return(nil).Once()
	be.On("Opened", "abc123").Run(func(mock.Arguments) { order = append(order, "opened") }).Return(nil).Once()
	exec := &inlineExec{}

	p := NewIpmProcessor(NewRequestsProcessor(be, nil), &mockEvents{}, exec, nil)
	p.TrackDisplayed("abc123")

	be.AssertExpectations(t)
	assert.Equal(t, []string{"received", "opened"}, order)
	assert.Len(t, exec.names, 1)
}

func TestTrackDisplayedSwallowsFailures(t *testing.T) {
	be := &mockBackend{}
	be.On("Received", "abc123").Return(errors.New("network error"))
	be.On("Opened", "abc123").Return(errors.New("network error"))

	p := NewIpmProcessor(NewRequestsProcessor(be, nil), &mockEvents{}, &inlineExec{}, nil)
	p.TrackDisplayed("abc123")

	// Opened is still attempted after received failed.
	be.AssertNumberOfCalls(t, "Opened", 1)
}

func TestTrackActionQueuesEvent(t *testing.T) {
	ev := &mockEvents{}
	ev.On("TrackEvent", EventAction, map[string]any{"instance_id": "abc123"}).Return(nil).Once()

	p := NewIpmProcessor(NewRequestsProcessor(&mockBackend{}, nil), ev, &inlineExec{}, nil)
	p.TrackAction("abc123")

	ev.AssertExpectations(t)
}

func TestTrackDismissRecordsReason(t *testing.T) {
	ev := &mockEvents{}
	ev.On("TrackEvent", EventDismiss, map[string]any{"instance_id": "abc123", "reason": "TAP_OUTSIDE"}).Return(nil).Once()

	p := NewIpmProcessor(NewRequestsProcessor(&mockBackend{}, nil), ev, &inlineExec{}, nil)
	p.TrackDismiss("abc123", ipm.TapOutside)

	ev.AssertExpectations(t)
}

func TestTrackDismissWithoutInstance(t *testing.T) {
	ev := &mockEvents{}
	ev.On("TrackEvent", EventDismiss, map[string]any{"reason": "SLIDE_DOWN"}).Return(nil).Once()

	p := NewIpmProcessor(NewRequestsProcessor(&mockBackend{}, nil), ev, &inlineExec{}, nil)
	p.TrackDismiss("", ipm.SlideDown)

	ev.AssertExpectations(t)
}

func TestSendOpenedSkipsTestPush(t *testing.T) {
	be := &mockBackend{}
	p := NewRequestsProcessor(be, nil)

	p.SendOpened(context.Background(), "c137", true)
	p.SendReceived(context.Background(), "")

	be.AssertNotCalled(t, "Opened", mock.Anything)
	be.AssertNotCalled(t, "Received", mock.Anything)
}

func TestSendUninstallTracker(t *testing.T) {
	be := &mockBackend{}
	be.On("UninstallTracker", "c137", true).Return(nil).Once()

	NewRequestsProcessor(be, nil).SendUninstallTracker(context.Background(), "c137", true)

	be.AssertExpectations(t)
}
