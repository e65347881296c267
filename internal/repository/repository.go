// Package repository persists the single pending in-product message and its avatar.
package repository

import (
	"encoding/json"
	"image"
	"io"
	"sync"

	"github.com/matheus3301/connect/internal/avatar"
	"github.com/matheus3301/connect/internal/ipm"
	"go.uber.org/zap"
)

// File names of the durable records.
const (
	ModelFile  = "zcn_ipm_model"
	AvatarFile = "zcn_ipm_avatar"
)

// FileStorage saves, reads and deletes named blobs.
type FileStorage interface {
	SaveFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
}

// IpmRepository is the single-slot store for the pending IPM. Reads are lazy
// and memoized; a successful write drops the in-memory copy so the next read
// goes back to storage. Storage failures never reach callers: a failed write
// keeps the written value in memory, and a failed delete hides the stale
// record until the next write.
type IpmRepository struct {
	mu      sync.Mutex
	storage FileStorage
	logger  *zap.Logger

	payload     *ipm.Payload
	payloadGone bool
	avatar      image.Image
	avatarGone  bool
}

// New creates a repository over storage.
func New(storage FileStorage, logger *zap.Logger) *IpmRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IpmRepository{storage: storage, logger: logger.Named("repository")}
}

// Get returns the pending payload, or nil when nothing is stored.
func (r *IpmRepository) Get() *ipm.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.loadPayloadLocked()
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Set persists p, or deletes the stored payload when p is nil.
func (r *IpmRepository) Set(p *ipm.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payload = nil
	if p == nil {
		r.payloadGone = !r.deleteLocked(ModelFile)
		return
	}
	r.payloadGone = false
	data, err := json.Marshal(p)
	if err == nil {
		err = r.storage.SaveFile(ModelFile, data)
	}
	if err != nil {
		r.logger.Error("failed to save ipm", zap.String("instance_id", p.InstanceID), zap.Error(err))
		cp := *p
		r.payload = &cp
	}
}

// Avatar returns the decoded, circle-cropped avatar, or nil.
func (r *IpmRepository) Avatar() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadAvatarLocked()
}

// SetAvatar persists the raw bytes read from src, or deletes the stored
// avatar when src is nil. The caller owns src and must close it.
func (r *IpmRepository) SetAvatar(src io.Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.avatar = nil
	if src == nil {
		r.avatarGone = !r.deleteLocked(AvatarFile)
		return
	}
	r.avatarGone = false
	data, err := io.ReadAll(src)
	if err != nil {
		r.logger.Error("failed to read avatar stream", zap.Error(err))
		r.avatarGone = true
		return
	}
	if err := r.storage.SaveFile(AvatarFile, data); err != nil {
		r.logger.Error("failed to save avatar", zap.Error(err))
		img, err := avatar.Decode(data)
		if err != nil {
			r.avatarGone = true
			return
		}
		r.avatar = img
	}
}

// WarmUp loads both records into memory.
func (r *IpmRepository) WarmUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadPayloadLocked()
	r.loadAvatarLocked()
}

// Clear deletes both records and their cached copies.
func (r *IpmRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = nil
	r.avatar = nil
	r.payloadGone = !r.deleteLocked(ModelFile)
	r.avatarGone = !r.deleteLocked(AvatarFile)
}

func (r *IpmRepository) loadPayloadLocked() *ipm.Payload {
	if r.payload != nil || r.payloadGone {
		return r.payload
	}
	data, err := r.storage.ReadFile(ModelFile)
	if err != nil {
		return nil
	}
	var p ipm.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn("stored ipm is unreadable", zap.Error(err))
		return nil
	}
	r.payload = &p
	return r.payload
}

func (r *IpmRepository) loadAvatarLocked() image.Image {
	if r.avatar != nil || r.avatarGone {
		return r.avatar
	}
	data, err := r.storage.ReadFile(AvatarFile)
	if err != nil || len(data) == 0 {
		return nil
	}
	img, err := avatar.Decode(data)
	if err != nil {
		r.logger.Warn("stored avatar is unreadable", zap.Error(err))
		return nil
	}
	r.avatar = img
	return img
}

func (r *IpmRepository) deleteLocked(name string) bool {
	if err := r.storage.DeleteFile(name); err != nil {
		r.logger.Error("failed to delete record", zap.String("file", name), zap.Error(err))
		return false
	}
	return true
}
