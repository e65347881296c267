// Package scheduler runs named one-shot jobs after a delay. Jobs are
// persisted so they survive a daemon restart; scheduling a name that is
// already pending replaces it.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/connect/internal/store"
	"go.uber.org/zap"
)

// Store persists jobs.
type Store interface {
	UpsertJob(j *store.Job) error
	DeleteJob(name string) (bool, error)
	ListJobs() ([]store.Job, error)
}

// Handler runs when the job called name comes due.
type Handler func(ctx context.Context, name string)

// Timer is the cancellable handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

type entry struct {
	timer Timer
	gen   uint64
	runAt time.Time
}

// Scheduler arms one timer per pending job name.
type Scheduler struct {
	mu        sync.Mutex
	db        Store
	kind      string
	handler   Handler
	logger    *zap.Logger
	afterFunc AfterFunc
	now       func() time.Time

	ctx     context.Context
	entries map[string]*entry
	gen     uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the time source and timer factory, mainly for tests.
func WithClock(now func() time.Time, afterFunc AfterFunc) Option {
	return func(s *Scheduler) {
		s.now = now
		s.afterFunc = afterFunc
	}
}

// New creates a scheduler for jobs of the given kind.
func New(db Store, kind string, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		db:        db,
		kind:      kind,
		logger:    logger.Named("scheduler").With(zap.String("kind", kind)),
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		now:       time.Now,
		ctx:       context.Background(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHandler sets the function run for due jobs. It must be called before Start.
func (s *Scheduler) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start restores persisted jobs. Jobs already overdue run right away.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.db.ListJobs()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	now := s.now()
	for _, j := range jobs {
		if j.Kind != s.kind {
			continue
		}
		runAt := time.UnixMilli(j.RunAt)
		s.armLocked(j.Name, max(runAt.Sub(now), 0), runAt)
		s.logger.Info("job restored", zap.String("name", j.Name), zap.Time("run_at", runAt))
	}
	return nil
}

// Stop disarms all timers. Persisted jobs are kept for the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, name)
	}
}

// Schedule runs the job called name after d, replacing any pending job with
// that name. Negative delays are treated as zero.
func (s *Scheduler) Schedule(name string, d time.Duration) {
	d = max(d, 0)
	s.mu.Lock()
	defer s.mu.Unlock()

	runAt := s.now().Add(d)
	if err := s.db.UpsertJob(&store.Job{Name: name, Kind: s.kind, RunAt: runAt.UnixMilli()}); err != nil {
		s.logger.Error("failed to persist job", zap.String("name", name), zap.Error(err))
	}
	s.armLocked(name, d, runAt)
	s.logger.Debug("job scheduled", zap.String("name", name), zap.Duration("delay", d))
}

// Cancel drops the pending job called name. Unknown names are ignored.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		e.timer.Stop()
		delete(s.entries, name)
		s.logger.Debug("job cancelled", zap.String("name", name))
	}
	if _, err := s.db.DeleteJob(name); err != nil {
		s.logger.Error("failed to delete job", zap.String("name", name), zap.Error(err))
	}
}

// Pending returns the names of armed jobs and when they are due.
func (s *Scheduler) Pending() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.runAt
	}
	return out
}

func (s *Scheduler) armLocked(name string, d time.Duration, runAt time.Time) {
	if old, ok := s.entries[name]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.entries[name] = &entry{
		gen:   gen,
		runAt: runAt,
		timer: s.afterFunc(d, func() { s.fire(name, gen) }),
	}
}

func (s *Scheduler) fire(name string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, name)
	if _, err := s.db.DeleteJob(name); err != nil {
		s.logger.Error("failed to delete fired job", zap.String("name", name), zap.Error(err))
	}
	handler, ctx := s.handler, s.ctx
	s.mu.Unlock()

	s.logger.Info("job fired", zap.String("name", name))
	if handler != nil {
		handler(ctx, name)
	}
}
