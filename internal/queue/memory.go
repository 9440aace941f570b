package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salespilot/salespilot-go/internal/metrics"
)

type job struct {
	id      string
	task    Task
	opt     EnqueueOption
	attempt int
}

// MemoryQueue is a bounded in-process worker pool implementing both Client
// and Server. When the buffer is full Enqueue fails fast with ErrQueueFull
// instead of blocking the caller. Handler errors and panics are logged and
// never escape the worker.
type MemoryQueue struct {
	workers int
	jobs    chan job
	logger  *slog.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

var (
	_ Client = (*MemoryQueue)(nil)
	_ Server = (*MemoryQueue)(nil)
)

// NewMemoryQueue creates a pool of workers goroutines over a buffer of
// capacity tasks. collector may be nil.
func NewMemoryQueue(workers, capacity int, collector *metrics.Collector, logger *slog.Logger) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryQueue{
		workers:  workers,
		jobs:     make(chan job, capacity),
		logger:   logger,
		metrics:  collector,
		handlers: make(map[string]Handler),
		stop:     make(chan struct{}),
	}
}

func (q *MemoryQueue) Register(taskType string, h Handler) {
	q.mu.Lock()
	q.handlers[taskType] = h
	q.mu.Unlock()
}

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", ErrNoTaskType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	j := job{id: uuid.NewString(), task: t, opt: firstOption(opts)}
	if d := j.opt.delay(time.Now()); d > 0 {
		q.mu.RLock()
		closed := q.closed
		q.mu.RUnlock()
		if closed {
			return "", ErrQueueClosed
		}
		time.AfterFunc(d, func() {
			if err := q.push(j); err != nil {
				q.logger.Warn("delayed task dropped", "task_id", j.id, "type", t.Type, "error", err)
			}
		})
		return j.id, nil
	}

	if err := q.push(j); err != nil {
		return "", err
	}
	return j.id, nil
}

func (q *MemoryQueue) push(j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- j:
		return nil
	default:
		q.metrics.Inc(metrics.CounterTaskRejected)
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is canceled or Stop is called.
// Tasks already buffered are drained before Run returns.
func (q *MemoryQueue) Run(ctx context.Context) error {
	q.logger.Info("memory queue started", "workers", q.workers, "capacity", cap(q.jobs))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	select {
	case <-ctx.Done():
	case <-q.stop:
	}
	q.shutdown()
	q.wg.Wait()
	q.logger.Info("memory queue stopped")
	return nil
}

// Stop closes the queue to new tasks and lets Run drain what is buffered.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() { close(q.stop) })
	return nil
}

// Close implements Client. It is equivalent to Stop.
func (q *MemoryQueue) Close() error {
	return q.Stop(context.Background())
}

// Len reports the number of buffered tasks.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

func (q *MemoryQueue) shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.jobs)
}

func (q *MemoryQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for j := range q.jobs {
		// Draining after cancellation still runs the task with a live context.
		q.run(context.WithoutCancel(ctx), j)
	}
}

func (q *MemoryQueue) run(ctx context.Context, j job) {
	q.mu.RLock()
	h, ok := q.handlers[j.task.Type]
	q.mu.RUnlock()
	if !ok {
		q.metrics.Inc(metrics.CounterTaskFailed)
		q.logger.Error("no handler for task", "task_id", j.id, "type", j.task.Type)
		return
	}

	for {
		err := q.invoke(ctx, h, j)
		if err == nil {
			return
		}
		if j.attempt >= j.opt.MaxRetry {
			q.metrics.Inc(metrics.CounterTaskFailed)
			q.logger.Error("task failed", "task_id", j.id, "type", j.task.Type, "attempts", j.attempt+1, "error", err)
			return
		}
		j.attempt++
		q.logger.Warn("task retry", "task_id", j.id, "type", j.task.Type, "attempt", j.attempt, "error", err)
	}
}

func (q *MemoryQueue) invoke(ctx context.Context, h Handler, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			q.logger.Error("task panicked", "task_id", j.id, "type", j.task.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if !j.opt.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, j.opt.Deadline)
		defer cancel()
	}
	return h(ctx, j.task)
}
