package model

import (
	"context"
	"encoding/base64"
	"image"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/avatar"
	"github.com/matheus3301/connect/internal/ipm"
	"github.com/matheus3301/connect/internal/rpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const callTimeout = 3 * time.Second

// RemoteIpm is an ipm.Model backed by the daemon. Load fetches the pending
// IPM; the terminal events are forwarded to the daemon and clear the cache.
type RemoteIpm struct {
	mu      sync.RWMutex
	daemon  Daemon
	payload *ipm.Payload
	avatar  image.Image
	onError func(error)
}

var _ ipm.Model = (*RemoteIpm)(nil)

// NewRemoteIpm creates a model over d. onError receives failed calls and may be nil.
func NewRemoteIpm(d Daemon, onError func(error)) *RemoteIpm {
	if onError == nil {
		onError = func(error) {}
	}
	return &RemoteIpm{daemon: d, onError: onError}
}

// Load refreshes the cached IPM from the daemon.
func (m *RemoteIpm) Load(ctx context.Context) error {
	resp, err := m.daemon.GetIpm(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}

	var (
		payload *ipm.Payload
		img     image.Image
	)
	if len(resp.GetFields()) > 0 {
		fields := rpc.StringMap(resp)
		p, err := ipm.ParsePayload(fields)
		if err != nil {
			return err
		}
		payload = &p
		if enc := fields[rpc.AvatarField]; enc != "" {
			img = decodeAvatar(enc)
		}
	}

	m.mu.Lock()
	m.payload, m.avatar = payload, img
	m.mu.Unlock()
	return nil
}

func decodeAvatar(enc string) image.Image {
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil
	}
	img, err := avatar.Decode(data)
	if err != nil {
		return nil
	}
	return img
}

func (m *RemoteIpm) Ipm() *ipm.Payload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payload
}

func (m *RemoteIpm) Avatar() image.Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.avatar
}

func (m *RemoteIpm) OnAction() {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if _, err := m.daemon.HandleAction(ctx, &emptypb.Empty{}); err != nil {
		m.onError(err)
	}
	m.reset()
}

func (m *RemoteIpm) OnDismiss(reason ipm.DismissReason) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	req := rpc.StructFromStrings(map[string]string{"reason": string(reason)})
	if _, err := m.daemon.HandleDismiss(ctx, req); err != nil {
		m.onError(err)
	}
	m.reset()
}

func (m *RemoteIpm) reset() {
	m.mu.Lock()
	m.payload, m.avatar = nil, nil
	m.mu.Unlock()
}
