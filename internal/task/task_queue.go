package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrQueueFull is returned when the buffer has no room; callers decide
	// whether to retry or surface the error.
	ErrQueueFull = errors.New("task queue is full")
)

// TaskQueue is the buffered channel the runner's workers consume from,
// with close-once semantics so submission after shutdown fails cleanly
// instead of panicking.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan Task
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a queue buffering up to size tasks.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue adds a task without blocking. Fails with ErrQueueFull when the
// buffer is at capacity and ErrQueueClosed after Close.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"task_type", task.Type(),
		"queue_len", len(q.tasks),
		"queue_cap", cap(q.tasks))
	return nil
}

// Close stops accepting tasks and closes the consumer channel. Safe to
// call more than once.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
	q.logger.Info("task queue closed")
}

// GetChannel exposes the consumer side of the queue to the workers.
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}
