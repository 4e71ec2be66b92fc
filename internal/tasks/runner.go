package tasks

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Defaults for the runner.
const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// ErrClosed indicates a submit after Close.
var ErrClosed = errors.New("tasks: runner closed")

// Task is a unit of deferred work. The context is the runner's
// lifetime context; tasks should honour its cancellation.
type Task func(ctx context.Context)

// Logger defines the logging interface used by the Runner.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type job struct {
	name string
	task Task
}

// Runner executes tasks on a fixed worker pool behind a bounded queue.
//
// Submission never blocks: when the queue is full the task is dropped
// and logged. Start must be called before Submit; Close drains the
// queue and waits for in-flight tasks.
type Runner struct {
	queue   chan job
	workers int
	logger  Logger

	group *errgroup.Group

	mu      sync.Mutex
	started bool
	closed  bool

	dropped int64
}

// NewRunner creates a runner. Non-positive arguments use defaults.
func NewRunner(workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Runner{
		queue:   make(chan job, queueSize),
		workers: workers,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the worker pool. The context bounds the lifetime of
// all tasks; cancelling it stops workers after their current task.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	group, gctx := errgroup.WithContext(ctx)
	r.group = group
	for i := 0; i < r.workers; i++ {
		group.Go(func() error {
			r.work(gctx)
			return nil
		})
	}
}

// Submit enqueues a task without blocking. Returns false when the task
// was dropped (queue full or runner closed); the drop is logged.
func (r *Runner) Submit(name string, task func(ctx context.Context)) bool {
	// The send stays under the mutex so Close cannot close the queue
	// between the closed check and the send. The select never blocks,
	// so the lock is held only briefly.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("task rejected, runner closed", "task", name)
		return false
	}

	select {
	case r.queue <- job{name: name, task: task}:
		r.mu.Unlock()
		return true
	default:
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.logger.Warn("task dropped, queue full", "task", name, "dropped_total", dropped)
		return false
	}
}

// Dropped returns the number of tasks dropped since creation.
func (r *Runner) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting tasks, drains the queue and waits for
// in-flight tasks to finish.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	// Closed under the same mutex that guards Submit's send, so no
	// submitter can reach the queue after this point.
	close(r.queue)
	r.mu.Unlock()

	if !started {
		return nil
	}
	return r.group.Wait()
}

// work consumes the queue until it is closed or the context ends.
func (r *Runner) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-r.queue:
			if !ok {
				return
			}
			r.run(ctx, j)
		}
	}
}

// run executes one task with panic containment.
func (r *Runner) run(ctx context.Context, j job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked", "task", j.name, "panic", rec)
		}
	}()
	j.task(ctx)
}
