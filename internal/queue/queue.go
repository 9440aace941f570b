// Package queue runs background tasks off the request path. Producers
// enqueue through Client, workers consume through Server. Two backends
// exist: an in-process bounded pool and asynq over Redis.
package queue

import (
	"context"
	"errors"
	"time"
)

// Errors returned by Client.Enqueue.
var (
	ErrQueueFull   = errors.New("queue: full")
	ErrQueueClosed = errors.New("queue: closed")
	ErrNoTaskType  = errors.New("queue: task type is required")
)

// Task is a background job: a stable type identifier and opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error is retried per backend policy,
// so handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior. Zero values mean unspecified.
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	ProcessAt time.Time     // absolute schedule time, wins over ProcessIn
	MaxRetry  int           // retries after the first attempt
	UniqueTTL time.Duration // asynq only
	Retention time.Duration // asynq only
	Deadline  time.Time     // hard deadline for processing
}

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs workers that handle tasks. Run blocks until ctx is canceled
// or Stop is called.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}

func firstOption(opts []EnqueueOption) EnqueueOption {
	if len(opts) == 0 {
		return EnqueueOption{}
	}
	return opts[0]
}

// delay resolves how long to wait before a task becomes runnable.
func (o EnqueueOption) delay(now time.Time) time.Duration {
	if !o.ProcessAt.IsZero() {
		if d := o.ProcessAt.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	if o.ProcessIn > 0 {
		return o.ProcessIn
	}
	return 0
}
