package api

import (
	"encoding/json"
	"time"

	"github.com/fableforge/fable-api/internal/domain"
)

// CreateTaskRequest represents the request body for starting a new task.
type CreateTaskRequest struct {
	Kind       string         `json:"kind"       validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

// TaskResponse represents the response data for a task snapshot.
type TaskResponse struct {
	ID              string          `json:"id"`
	Kind            string          `json:"kind"`
	KindDisplayName string          `json:"kind_display_name"`
	Status          string          `json:"status"`
	Progress        int             `json:"progress"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// PerformanceSummaryResponse represents one kind's average in the
// performance endpoint.
type PerformanceSummaryResponse struct {
	Kind                   string  `json:"kind"`
	KindDisplayName        string  `json:"kind_display_name"`
	AverageDurationSeconds float64 `json:"average_duration_seconds"`
	SampleCount            int     `json:"sample_count"`
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:              task.ID.String(),
		Kind:            string(task.Kind),
		KindDisplayName: task.Kind.DisplayName(),
		Status:          string(task.Status),
		Progress:        task.Progress,
		ProgressMessage: task.ProgressMessage,
		Result:          task.Result,
		Error:           task.Error,
		CreatedAt:       task.CreatedAt,
		StartedAt:       task.StartedAt,
		FinishedAt:      task.FinishedAt,
	}
}

// summaryToResponse converts a domain.PerformanceSummary to its DTO.
func summaryToResponse(summary domain.PerformanceSummary) PerformanceSummaryResponse {
	return PerformanceSummaryResponse{
		Kind:                   string(summary.Kind),
		KindDisplayName:        summary.Kind.DisplayName(),
		AverageDurationSeconds: summary.AverageDurationSeconds,
		SampleCount:            summary.SampleCount,
	}
}
