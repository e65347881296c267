package push

import (
	"context"
	"errors"

	"github.com/matheus3301/connect/internal/ipm"
	"go.uber.org/zap"
)

// ErrNotConnectPush is returned for push data that carries no instance id and
// is not a test push.
var ErrNotConnectPush = errors.New("not a connect push")

// Kind is the type of an incoming push.
type Kind string

const (
	KindUnknown Kind = "UNKNOWN"
	KindIpm     Kind = "IPM"
	KindSystem  Kind = "SYSTEM_PUSH"
)

// IsConnectPush reports whether data was sent by Connect.
func IsConnectPush(data map[string]string) bool {
	return data[KeyInstanceID] != "" || flag(data, KeyTestPush)
}

// Classify decides how data should be handled.
func Classify(data map[string]string) Kind {
	if !IsConnectPush(data) {
		return KindUnknown
	}
	if data[KeyType] == TypeIpm {
		return KindIpm
	}
	return KindSystem
}

// IpmStarter takes ownership of an in-product message.
type IpmStarter interface {
	StartIpm(ctx context.Context, p ipm.Payload)
}

// Router hands push data to the IPM coordinator or the system push path.
type Router struct {
	ipm    IpmStarter
	system ipm.PushProcessor
	logger *zap.Logger
}

// NewRouter creates a router.
func NewRouter(starter IpmStarter, system ipm.PushProcessor, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{ipm: starter, system: system, logger: logger.Named("router")}
}

// Route dispatches data and reports what kind of push it was.
func (r *Router) Route(ctx context.Context, data map[string]string) (Kind, error) {
	kind := Classify(data)
	switch kind {
	case KindIpm:
		p, err := ipm.ParsePayload(data)
		if err != nil {
			r.logger.Warn("dropping malformed ipm", zap.Error(err))
			return kind, err
		}
		r.ipm.StartIpm(ctx, p)
	case KindSystem:
		r.system.Process(ctx, data)
	default:
		r.logger.Debug("ignoring push that is not from connect", zap.Int("keys", len(data)))
		return kind, ErrNotConnectPush
	}
	return kind, nil
}
