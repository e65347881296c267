// Package outbox queues analytics events durably and flushes them to the track API.
package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/backend"
	"github.com/matheus3301/connect/internal/bus"
	"github.com/matheus3301/connect/internal/store"
	"go.uber.org/zap"
)

// BatchSender posts a batch of events.
type BatchSender interface {
	TrackBatch(ctx context.Context, guid string, events []backend.Event) error
}

// Options tunes the flush loop.
type Options struct {
	FlushInterval time.Duration
	BatchSize     int
	MaxAttempts   int
}

// Sender drains the event outbox in batches.
type Sender struct {
	db     *store.DB
	sender BatchSender
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options
	cancel context.CancelFunc
	done   chan struct{}
	flush  sync.Mutex
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, sender BatchSender, b *bus.Bus, opts Options, logger *zap.Logger) *Sender {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:     db,
		sender: sender,
		bus:    b,
		logger: logger.Named("outbox"),
		opts:   opts,
	}
}

// Start begins polling the outbox for queued events. Entries a previous run
// left half-sent are queued again first.
func (s *Sender) Start(ctx context.Context) {
	if n, err := s.db.RequeueSending(); err != nil {
		s.logger.Error("failed to requeue interrupted events", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted events", zap.Int64("count", n))
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for an in-flight flush.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sender) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Flush sends queued events until the queue is empty or a batch fails.
// It returns the number of events delivered.
func (s *Sender) Flush(ctx context.Context) int {
	s.flush.Lock()
	defer s.flush.Unlock()

	sent := 0
	for ctx.Err() == nil {
		n, ok := s.processBatch(ctx)
		sent += n
		if !ok || n < s.opts.BatchSize {
			break
		}
	}
	return sent
}

func (s *Sender) processBatch(ctx context.Context) (int, bool) {
	pending, err := s.db.PendingEvents(s.opts.BatchSize)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return 0, false
	}
	if len(pending) == 0 {
		return 0, true
	}

	batch := make([]backend.Event, 0, len(pending))
	ids := make([]string, 0, len(pending))
	for _, entry := range pending {
		if err := s.db.MarkEventSending(entry.ClientID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_id", entry.ClientID))
			continue
		}
		var props map[string]any
		if err := json.Unmarshal([]byte(entry.Properties), &props); err != nil {
			s.logger.Warn("dropping unreadable event properties", zap.String("client_id", entry.ClientID), zap.Error(err))
		}
		batch = append(batch, backend.Event{
			UserID:     entry.UserID,
			Event:      entry.Name,
			Properties: props,
			Timestamp:  entry.Timestamp,
		})
		ids = append(ids, entry.ClientID)
	}
	if len(batch) == 0 {
		return 0, false
	}

	if err := s.sender.TrackBatch(ctx, pending[0].GUID, batch); err != nil {
		s.logger.Error("failed to send events", zap.Error(err), zap.Int("count", len(batch)))
		for _, id := range ids {
			_ = s.db.MarkEventFailed(id, err.Error(), s.opts.MaxAttempts)
		}
		s.bus.Emit(bus.KindEventFlushFailed, map[string]any{"count": len(batch), "error": err.Error()})
		return 0, false
	}

	for _, id := range ids {
		if err := s.db.MarkEventSent(id); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_id", id))
		}
	}
	s.logger.Info("events sent", zap.Int("count", len(batch)))
	s.bus.Emit(bus.KindEventFlushed, map[string]any{"count": len(batch)})
	return len(batch), true
}
