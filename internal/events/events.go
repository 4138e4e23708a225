package events

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
)

// TaskEvent is one state-change notification for a task: a progress update
// while running, or the terminal completion/failure. Result is set only on
// completion and Error only on failure.
type TaskEvent struct {
	TaskID   uuid.UUID         `json:"task_id"`
	Status   domain.TaskStatus `json:"status"`
	Progress int               `json:"progress"`
	Message  string            `json:"message,omitempty"`
	Result   json.RawMessage   `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Terminal reports whether the event ends the task's event stream.
func (e TaskEvent) Terminal() bool {
	return e.Status.Terminal()
}

// EventFromTask builds the notification matching a task's current state.
func EventFromTask(task *domain.Task) TaskEvent {
	event := TaskEvent{
		TaskID:   task.ID,
		Status:   task.Status,
		Progress: task.Progress,
		Message:  task.ProgressMessage,
	}

	switch task.Status {
	case domain.TaskStatusCompleted:
		event.Result = task.Result
	case domain.TaskStatusFailed:
		event.Error = task.Error
	}

	return event
}
