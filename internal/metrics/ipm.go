package metrics

import (
	"context"

	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/worker"
	"go.uber.org/zap"
)

// Analytics event names for IPM interactions.
const (
	EventAction  = "ipm_metric_action_tapped"
	EventDismiss = "ipm_metric_dismissed"
)

// Submitter runs tasks in the background.
type Submitter interface {
	Submit(name string, task worker.Task) bool
}

// EventTracker queues analytics events.
type EventTracker interface {
	TrackEvent(name string, props map[string]any) error
}

// IpmProcessor emits IPM metrics on a background executor.
type IpmProcessor struct {
	requests *RequestsProcessor
	events   EventTracker
	exec     Submitter
	logger   *zap.Logger
}

// NewIpmProcessor creates an IPM metric emitter.
func NewIpmProcessor(requests *RequestsProcessor, events EventTracker, exec Submitter, logger *zap.Logger) *IpmProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IpmProcessor{requests: requests, events: events, exec: exec, logger: logger.Named("ipm_metrics")}
}

// TrackDisplayed sends received then opened for instanceID in one task, so a
// later push fallback for the same message never counts it as received twice.
func (p *IpmProcessor) TrackDisplayed(instanceID string) {
	p.exec.Submit("ipm.displayed", func(ctx context.Context) error {
		p.requests.SendReceived(ctx, instanceID)
		p.requests.SendOpened(ctx, instanceID, false)
		return nil
	})
}

// TrackAction queues the action-tapped event.
func (p *IpmProcessor) TrackAction(instanceID string) {
	p.track(EventAction, map[string]any{"instance_id": instanceID})
}

// TrackDismiss queues the dismissed event with its reason.
func (p *IpmProcessor) TrackDismiss(instanceID string, reason ipm.DismissReason) {
	p.track(EventDismiss, map[string]any{"instance_id": instanceID, "reason": string(reason)})
}

func (p *IpmProcessor) track(name string, props map[string]any) {
	if props["instance_id"] == "" {
		delete(props, "instance_id")
	}
	p.exec.Submit(name, func(context.Context) error {
		return p.events.TrackEvent(name, props)
	})
}
