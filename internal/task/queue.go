package task

import (
	"fmt"
	"log/slog"
	"sync"
)

// Queue is a bounded buffer of jobs awaiting a worker.
type Queue struct {
	mu     sync.Mutex
	jobs   chan Job
	closed bool
	logger *slog.Logger
}

// NewQueue creates a queue with the specified buffer size.
func NewQueue(size int, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:   make(chan Job, size),
		logger: logger.With("component", "task_queue"),
	}
}

// Enqueue adds a job for processing. Returns ErrQueueFull when the buffer
// is exhausted and ErrQueueClosed after Close; it never blocks.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.logger.Debug("job enqueued",
			"task_id", job.TaskID(),
			"kind", job.Kind(),
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// Close closes the queue, preventing further submission. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		q.logger.Info("task queue closed")
	}
}

// Chan returns a read-only channel for consuming jobs.
func (q *Queue) Chan() <-chan Job {
	return q.jobs
}
