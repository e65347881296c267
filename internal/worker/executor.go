// Package worker runs fire-and-forget tasks off the caller's goroutine.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is a unit of background work. A returned error is logged only.
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

// Executor is a fixed pool of workers draining a buffered queue.
type Executor struct {
	workers int
	queue   chan job
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	ctx     context.Context
	wg      sync.WaitGroup
	stopped bool
}

// NewExecutor creates an executor. Call Start before tasks are expected to run.
func NewExecutor(workers, queueSize int, logger *zap.Logger) *Executor {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		workers: workers,
		queue:   make(chan job, queueSize),
		logger:  logger.Named("worker"),
	}
}

// Start launches the workers.
func (e *Executor) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.loop(e.ctx, i)
	}
}

// Stop cancels running tasks and waits for the workers to exit. Tasks still
// queued are discarded.
func (e *Executor) Stop() {
	e.mu.Lock()
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

// Submit queues task without blocking. When the queue is full the task runs on
// its own goroutine instead of being dropped. Returns false after Stop.
func (e *Executor) Submit(name string, task Task) bool {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.logger.Warn("task rejected after stop", zap.String("task", name))
		return false
	}
	ctx := e.ctx
	e.mu.Unlock()

	select {
	case e.queue <- job{name: name, run: task}:
	default:
		if ctx == nil {
			ctx = context.Background()
		}
		e.logger.Debug("queue full, running task inline", zap.String("task", name))
		go e.run(ctx, job{name: name, run: task})
	}
	return true
}

func (e *Executor) loop(ctx context.Context, id int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-e.queue:
			e.run(ctx, j)
		}
	}
}

func (e *Executor) run(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", zap.String("task", j.name), zap.Any("panic", r))
		}
	}()
	if err := j.run(ctx); err != nil {
		e.logger.Warn("task failed", zap.String("task", j.name), zap.Error(err))
	}
}
