package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/generation"
)

// Common errors
var (
	ErrNilTask      = errors.New("task cannot be nil")
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// GenerationJob implements the Job interface by delegating the opaque
// generation work to a generation.Generator.
type GenerationJob struct {
	taskID     uuid.UUID
	kind       domain.TaskKind
	parameters map[string]any
	generator  generation.Generator
	logger     *slog.Logger
}

// NewGenerationJob creates a job executing the given task's generation work.
func NewGenerationJob(
	t *domain.Task,
	generator generation.Generator,
	logger *slog.Logger,
) (*GenerationJob, error) {
	if t == nil {
		return nil, ErrNilTask
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &GenerationJob{
		taskID:     t.ID,
		kind:       t.Kind,
		parameters: t.Parameters,
		generator:  generator,
		logger:     logger.With("task_id", t.ID, "kind", t.Kind),
	}, nil
}

// TaskID returns the id of the task this job executes.
func (j *GenerationJob) TaskID() uuid.UUID {
	return j.taskID
}

// Kind returns the task kind.
func (j *GenerationJob) Kind() domain.TaskKind {
	return j.kind
}

// Parameters returns the attempt-specific inputs.
func (j *GenerationJob) Parameters() map[string]any {
	return j.parameters
}

// Execute runs the generation and returns the opaque result payload.
func (j *GenerationJob) Execute(ctx context.Context) (json.RawMessage, error) {
	j.logger.Info("starting generation")

	result, err := j.generator.Generate(ctx, j.kind, j.parameters)
	if err != nil {
		j.logger.Error("generation failed", "error", err)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	j.logger.Info("generation finished", "result_bytes", len(result))
	return result, nil
}

// Ensure GenerationJob implements Job
var _ Job = (*GenerationJob)(nil)
