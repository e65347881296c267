// Package metrics reports push and IPM metrics without blocking callers.
package metrics

import (
	"context"

	"go.uber.org/zap"
)

// Backend sends individual metric requests.
type Backend interface {
	Received(ctx context.Context, instanceID string) error
	Opened(ctx context.Context, instanceID string) error
	UninstallTracker(ctx context.Context, instanceID string, revoked bool) error
}

// RequestsProcessor sends metric requests synchronously and logs failures.
type RequestsProcessor struct {
	backend Backend
	logger  *zap.Logger
}

// NewRequestsProcessor creates a processor over backend.
func NewRequestsProcessor(backend Backend, logger *zap.Logger) *RequestsProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestsProcessor{backend: backend, logger: logger.Named("metrics")}
}

// SendReceived reports that instanceID reached the device.
func (p *RequestsProcessor) SendReceived(ctx context.Context, instanceID string) {
	if instanceID == "" {
		p.logger.Warn("received metric without instance id")
		return
	}
	if err := p.backend.Received(ctx, instanceID); err != nil {
		p.logger.Warn("received metric failed", zap.String("instance_id", instanceID), zap.Error(err))
	}
}

// SendOpened reports that instanceID was shown. Test pushes are not counted.
func (p *RequestsProcessor) SendOpened(ctx context.Context, instanceID string, testPush bool) {
	if instanceID == "" {
		p.logger.Warn("opened metric without instance id")
		return
	}
	if testPush {
		p.logger.Debug("test push, not sending opened metric", zap.String("instance_id", instanceID))
		return
	}
	if err := p.backend.Opened(ctx, instanceID); err != nil {
		p.logger.Warn("opened metric failed", zap.String("instance_id", instanceID), zap.Error(err))
	}
}

// SendUninstallTracker answers an uninstall-tracking push.
func (p *RequestsProcessor) SendUninstallTracker(ctx context.Context, instanceID string, revoked bool) {
	if err := p.backend.UninstallTracker(ctx, instanceID, revoked); err != nil {
		p.logger.Warn("uninstall tracker failed", zap.String("instance_id", instanceID), zap.Error(err))
	}
}
