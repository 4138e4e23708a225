package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableforge/fable-api/internal/domain"
)

// stubSubmitter records submitted jobs and can reject them.
type stubSubmitter struct {
	err  error
	jobs []Job
}

func (s *stubSubmitter) Submit(ctx context.Context, job Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// captureStore remembers the last task Create returned.
type captureStore struct {
	Store
	created *domain.Task
}

func (c *captureStore) Create(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (*domain.Task, error) {
	created, err := c.Store.Create(ctx, kind, parameters)
	c.created = created
	return created, err
}

type noopGenerator struct{}

func (noopGenerator) Generate(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestService_StartTask(t *testing.T) {
	t.Parallel()

	t.Run("creates and submits", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore(testLogger())
		submitter := &stubSubmitter{}
		service := NewService(store, submitter, noopGenerator{}, testLogger())

		created, err := service.StartTask(context.Background(), domain.KindBrainstorm,
			map[string]any{"num_ideas": 3})
		require.NoError(t, err)

		assert.Equal(t, domain.TaskStatusPending, created.Status)
		require.Len(t, submitter.jobs, 1)
		assert.Equal(t, created.ID, submitter.jobs[0].TaskID())
		assert.Equal(t, domain.KindBrainstorm, submitter.jobs[0].Kind())
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		t.Parallel()

		store := NewMemoryStore(testLogger())
		service := NewService(store, &stubSubmitter{}, noopGenerator{}, testLogger())

		_, err := service.StartTask(context.Background(), domain.TaskKind("saga"), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTaskKind)
	})

	t.Run("submission failure marks the task failed", func(t *testing.T) {
		t.Parallel()

		store := &captureStore{Store: NewMemoryStore(testLogger())}
		submitter := &stubSubmitter{err: ErrQueueFull}
		service := NewService(store, submitter, noopGenerator{}, testLogger())

		_, err := service.StartTask(context.Background(), domain.KindOutline, nil)
		require.ErrorIs(t, err, ErrQueueFull)

		// The task still exists and records the failure.
		require.NotNil(t, store.created)
		failed, err := store.Get(context.Background(), store.created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, failed.Status)
		assert.Contains(t, failed.Error, "failed to submit task")
	})
}

func TestService_GetTask(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(testLogger())
	service := NewService(store, &stubSubmitter{}, noopGenerator{}, testLogger())

	created, err := service.StartTask(context.Background(), domain.KindEdit, nil)
	require.NoError(t, err)

	got, err := service.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = service.GetTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
