package task

import "errors"

// Common errors returned by the task package.
var (
	// ErrTaskNotFound is returned when a task id is unknown to the store.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when an operation is attempted on a
	// task that is not in the required source state. This is always a
	// caller or worker bug; it is never retried.
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrQueueClosed is returned when submitting to a closed queue.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrQueueFull is returned when the queue buffer is exhausted.
	ErrQueueFull = errors.New("task queue is full")
)
