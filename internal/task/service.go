package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/generation"
)

// Submitter accepts jobs for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, job Job) error
}

// Service coordinates task creation with job submission. It is the single
// entry point the HTTP layer uses to start and inspect tasks.
type Service struct {
	store     Store
	submitter Submitter
	generator generation.Generator
	logger    *slog.Logger
}

// NewService creates a task Service.
func NewService(
	store Store,
	submitter Submitter,
	generator generation.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		submitter: submitter,
		generator: generator,
		logger:    logger.With("component", "task_service"),
	}
}

// StartTask creates a pending task and submits its generation job. When
// submission fails the task is marked failed so the caller still sees a
// consistent terminal record.
func (s *Service) StartTask(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (*domain.Task, error) {
	created, err := s.store.Create(ctx, kind, parameters)
	if err != nil {
		return nil, err
	}

	job, err := NewGenerationJob(created, s.generator, s.logger)
	if err != nil {
		return nil, s.failCreated(ctx, created, fmt.Errorf("failed to build generation job: %w", err))
	}

	if err := s.submitter.Submit(ctx, job); err != nil {
		return nil, s.failCreated(ctx, created, fmt.Errorf("failed to submit task: %w", err))
	}

	s.logger.InfoContext(ctx, "task started",
		"task_id", created.ID,
		"kind", kind)
	return created, nil
}

// GetTask returns the current snapshot of one task.
func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.store.Get(ctx, id)
}

// failCreated marks a freshly created task failed and returns the original
// error for the caller.
func (s *Service) failCreated(ctx context.Context, created *domain.Task, cause error) error {
	if failErr := s.store.Fail(ctx, created.ID, cause.Error()); failErr != nil {
		s.logger.ErrorContext(ctx, "failed to mark task failed after submission error",
			"task_id", created.ID,
			"error", failErr)
	}
	return cause
}
