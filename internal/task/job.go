package task

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
)

// Job is the contract an executable unit of work honors to integrate with
// the runner. The runner owns the surrounding lifecycle: it marks the task
// running before Execute, applies exactly one terminal transition from
// Execute's outcome, and records the measured wall-clock duration as a
// performance metric. Execute itself stays opaque to the orchestration
// layer.
type Job interface {
	// TaskID returns the id of the task this job executes.
	TaskID() uuid.UUID

	// Kind returns the task kind, used to partition performance history.
	Kind() domain.TaskKind

	// Parameters returns the attempt-specific inputs, recorded alongside
	// the metric for this attempt.
	Parameters() map[string]any

	// Execute performs the work and returns its result payload, or an
	// error that becomes the task's terminal failure reason.
	Execute(ctx context.Context) (json.RawMessage, error)
}
