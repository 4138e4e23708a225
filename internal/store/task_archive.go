package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
)

// PostgresTaskArchive persists terminal tasks to PostgreSQL.
type PostgresTaskArchive struct {
	db     DBTX
	logger *slog.Logger
}

// NewPostgresTaskArchive creates a new PostgresTaskArchive.
func NewPostgresTaskArchive(db DBTX, logger *slog.Logger) *PostgresTaskArchive {
	return &PostgresTaskArchive{
		db:     db,
		logger: logger.With("component", "task_archive"),
	}
}

// ArchiveTask writes a terminal task to the archive. Re-archiving the same
// task overwrites the previous row, so the call is safe to repeat.
func (a *PostgresTaskArchive) ArchiveTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidEntity)
	}
	if !task.Status.Terminal() {
		return fmt.Errorf("%w: task %s is not terminal", ErrInvalidEntity, task.ID)
	}

	parameters, err := marshalParameters(task.Parameters)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, kind, status, progress, progress_message, parameters,
		                   result, error_message, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			progress_message = EXCLUDED.progress_message,
			result = EXCLUDED.result,
			error_message = EXCLUDED.error_message,
			finished_at = EXCLUDED.finished_at,
			archived_at = now()
	`

	_, err = a.db.ExecContext(ctx, query,
		task.ID,
		task.Kind,
		task.Status,
		task.Progress,
		task.ProgressMessage,
		parameters,
		nullableJSON(task.Result),
		task.Error,
		task.CreatedAt,
		task.StartedAt,
		task.FinishedAt,
	)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to archive task",
			"task_id", task.ID,
			"kind", task.Kind,
			"error", err)
		return fmt.Errorf("failed to archive task: %w", err)
	}

	a.logger.DebugContext(ctx, "task archived",
		"task_id", task.ID,
		"kind", task.Kind,
		"status", task.Status)
	return nil
}

// GetTask retrieves one archived task by ID.
func (a *PostgresTaskArchive) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, kind, status, progress, progress_message, parameters,
		       result, error_message, created_at, started_at, finished_at
		FROM tasks
		WHERE id = $1
	`
	task, err := scanTask(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get archived task: %w", err)
	}
	return task, nil
}

// ListRecent returns the most recently finished archived tasks, newest
// first. An empty kind lists across all kinds.
func (a *PostgresTaskArchive) ListRecent(ctx context.Context, kind domain.TaskKind, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, kind, status, progress, progress_message, parameters,
		       result, error_message, created_at, started_at, finished_at
		FROM tasks
		WHERE ($1 = '' OR kind = $1)
		ORDER BY finished_at DESC NULLS LAST
		LIMIT $2
	`
	rows, err := a.db.QueryContext(ctx, query, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archived task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived tasks: %w", err)
	}
	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		parameters []byte
		result     []byte
	)
	err := row.Scan(
		&task.ID,
		&task.Kind,
		&task.Status,
		&task.Progress,
		&task.ProgressMessage,
		&parameters,
		&result,
		&task.Error,
		&task.CreatedAt,
		&task.StartedAt,
		&task.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(parameters) > 0 {
		if err := json.Unmarshal(parameters, &task.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode task parameters: %w", err)
		}
	}
	if len(result) > 0 {
		task.Result = json.RawMessage(result)
	}
	return &task, nil
}

func marshalParameters(parameters map[string]any) (any, error) {
	if parameters == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task parameters: %w", err)
	}
	return encoded, nil
}

// nullableJSON maps an empty payload to NULL instead of an empty JSONB value.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
