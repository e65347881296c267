package ipm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoordinatorModelDrivesTransitions(t *testing.T) {
	h := newHarness(t)
	h.tracker.foreground = true
	h.tracker.screen = "home"
	h.c.StartIpm(context.Background(), payload("m1", time.Minute))

	var model Model = CoordinatorModel{Coordinator: h.c}
	view := &recordingView{}
	presenter := NewPresenter(view, model, nil)

	presenter.OnIpmReceived()
	assert.Len(t, view.displayed, 1)
	assert.Equal(t, 1, view.hidden)

	presenter.OnAction(view.displayed[0].Action)
	assert.Equal(t, 1, h.j.count("action:m1"))
	assert.Nil(t, model.Ipm())
	assert.Len(t, view.launched, 1)

	// a late render after the clear closes the view
	presenter.OnIpmReceived()
	assert.Equal(t, 2, view.dismissed)
}

func TestCoordinatorModelDismiss(t *testing.T) {
	h := newHarness(t)
	h.c.StartIpm(context.Background(), payload("m2", time.Minute))

	CoordinatorModel{Coordinator: h.c}.OnDismiss(NavigateBack)

	assert.Equal(t, 1, h.j.count("dismiss:m2:NAVIGATE_BACK"))
	assert.Nil(t, h.c.Ipm())
}
