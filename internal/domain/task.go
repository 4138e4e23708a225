package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

// Possible task status values. Transitions are monotonic:
// pending -> running -> completed|failed, and terminal states are absorbing.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrInvalidProgress    = errors.New("progress must be between 0 and 100")
	ErrEmptyFailureReason = errors.New("failure reason cannot be empty")
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task represents one tracked unit of asynchronous generation work.
// Result is populated only when the task completed; Error only when it
// failed. StartedAt is set on the pending->running transition and
// FinishedAt on any transition into a terminal state.
type Task struct {
	ID              uuid.UUID       `json:"id"`
	Kind            TaskKind        `json:"kind"`
	Status          TaskStatus      `json:"status"`
	Progress        int             `json:"progress"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Parameters      map[string]any  `json:"parameters,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// NewTask creates a pending Task of the given kind with a fresh identifier.
// Returns an error if the kind is outside the closed set.
func NewTask(kind TaskKind, parameters map[string]any) (*Task, error) {
	task := &Task{
		ID:         uuid.New(),
		Kind:       kind,
		Status:     TaskStatusPending,
		Progress:   0,
		Parameters: parameters,
		CreatedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if !t.Kind.Valid() {
		return ErrInvalidTaskKind
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.Progress < 0 || t.Progress > 100 {
		return ErrInvalidProgress
	}

	return nil
}

// Clone returns a deep copy of the task. Stores hand out clones so that
// readers never alias the authoritative record.
func (t *Task) Clone() *Task {
	clone := *t

	if t.Parameters != nil {
		clone.Parameters = make(map[string]any, len(t.Parameters))
		for k, v := range t.Parameters {
			clone.Parameters[k] = v
		}
	}

	if t.Result != nil {
		clone.Result = make(json.RawMessage, len(t.Result))
		copy(clone.Result, t.Result)
	}

	if t.StartedAt != nil {
		startedAt := *t.StartedAt
		clone.StartedAt = &startedAt
	}

	if t.FinishedAt != nil {
		finishedAt := *t.FinishedAt
		clone.FinishedAt = &finishedAt
	}

	return &clone
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
