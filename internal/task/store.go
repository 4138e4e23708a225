package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/events"
	"github.com/fableforge/fable-api/internal/platform/clock"
)

// Store is the authoritative, race-free lifecycle manager for tasks.
// Mutating operations on the same task id are linearizable; terminal
// states are absorbing.
type Store interface {
	// Create inserts a new pending task of the given kind and returns it.
	Create(ctx context.Context, kind domain.TaskKind, parameters map[string]any) (*domain.Task, error)

	// MarkRunning transitions pending -> running and sets StartedAt.
	MarkRunning(ctx context.Context, id uuid.UUID) error

	// UpdateProgress sets progress while running. The percentage is
	// clamped to [current, 100] so observed progress never regresses.
	UpdateProgress(ctx context.Context, id uuid.UUID, percent int, message string) error

	// Complete transitions running -> completed, sets the result and
	// forces progress to 100.
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error

	// Fail transitions a non-terminal task to failed with the reason.
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// Get returns a snapshot of the task, or ErrTaskNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Publisher receives every state transition the store applies. Polling
// Get and subscribing to published events are semantically equivalent for
// observers; both only read task state.
type Publisher interface {
	Publish(taskID uuid.UUID, event events.TaskEvent)
}

// Archiver persists terminal tasks outside the in-memory store.
type Archiver interface {
	ArchiveTask(ctx context.Context, task *domain.Task) error
}

// taskEntry pairs a task with its own lock. Holding the entry lock across
// mutate-and-publish gives all observers the same transition order for a
// given task id.
type taskEntry struct {
	mu   sync.Mutex
	task *domain.Task
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu        sync.RWMutex
	tasks     map[uuid.UUID]*taskEntry
	publisher Publisher
	archiver  Archiver
	clock     clock.Clock
	logger    *slog.Logger
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithPublisher wires transition events to a publisher.
func WithPublisher(p Publisher) MemoryStoreOption {
	return func(s *MemoryStore) { s.publisher = p }
}

// WithArchiver persists terminal tasks through the given archiver.
func WithArchiver(a Archiver) MemoryStoreOption {
	return func(s *MemoryStore) { s.archiver = a }
}

// WithClock overrides the store's time source.
func WithClock(c clock.Clock) MemoryStoreOption {
	return func(s *MemoryStore) { s.clock = c }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(logger *slog.Logger, opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		tasks:  make(map[uuid.UUID]*taskEntry),
		clock:  clock.New(),
		logger: logger.With("component", "task_store"),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Create inserts a new pending task and returns a snapshot of it.
func (s *MemoryStore) Create(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (*domain.Task, error) {
	newTask, err := domain.NewTask(kind, parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	newTask.CreatedAt = s.clock.Now()

	s.mu.Lock()
	s.tasks[newTask.ID] = &taskEntry{task: newTask}
	s.mu.Unlock()

	s.logger.Debug("task created", "task_id", newTask.ID, "kind", kind)
	return newTask.Clone(), nil
}

// MarkRunning transitions pending -> running.
func (s *MemoryStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.task.Status != domain.TaskStatusPending {
		return fmt.Errorf("%w: cannot mark task %s running from status %q",
			ErrInvalidTransition, id, entry.task.Status)
	}

	now := s.clock.Now()
	entry.task.Status = domain.TaskStatusRunning
	entry.task.StartedAt = &now

	s.publish(entry.task)
	s.logger.Debug("task running", "task_id", id, "kind", entry.task.Kind)
	return nil
}

// UpdateProgress sets progress on a running task. Values below the current
// progress are clamped up to it, values above 100 down to 100; the message
// is updated either way.
func (s *MemoryStore) UpdateProgress(ctx context.Context, id uuid.UUID, percent int, message string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.task.Status != domain.TaskStatusRunning {
		return fmt.Errorf("%w: cannot update progress of task %s in status %q",
			ErrInvalidTransition, id, entry.task.Status)
	}

	if percent < entry.task.Progress {
		percent = entry.task.Progress
	}
	if percent > 100 {
		percent = 100
	}
	entry.task.Progress = percent
	entry.task.ProgressMessage = message

	s.publish(entry.task)
	return nil
}

// Complete transitions running -> completed and stores the result.
func (s *MemoryStore) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	if entry.task.Status != domain.TaskStatusRunning {
		status := entry.task.Status
		entry.mu.Unlock()
		return fmt.Errorf("%w: cannot complete task %s in status %q", ErrInvalidTransition, id, status)
	}

	now := s.clock.Now()
	entry.task.Status = domain.TaskStatusCompleted
	entry.task.Progress = 100
	entry.task.ProgressMessage = "Complete!"
	entry.task.Result = result
	entry.task.FinishedAt = &now

	s.publish(entry.task)
	snapshot := entry.task.Clone()
	entry.mu.Unlock()

	s.archive(ctx, snapshot)
	s.logger.Info("task completed", "task_id", id, "kind", snapshot.Kind)
	return nil
}

// Fail transitions a non-terminal task to failed. Tasks that never reached
// running (for example when the queue rejected them) can fail directly
// from pending.
func (s *MemoryStore) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	if entry.task.Status.Terminal() {
		status := entry.task.Status
		entry.mu.Unlock()
		return fmt.Errorf("%w: cannot fail task %s in status %q", ErrInvalidTransition, id, status)
	}

	if reason == "" {
		reason = "unknown error"
	}

	now := s.clock.Now()
	entry.task.Status = domain.TaskStatusFailed
	entry.task.Error = reason
	entry.task.FinishedAt = &now

	s.publish(entry.task)
	snapshot := entry.task.Clone()
	entry.mu.Unlock()

	s.archive(ctx, snapshot)
	s.logger.Info("task failed", "task_id", id, "kind", snapshot.Kind, "error", reason)
	return nil
}

// Get returns a snapshot copy of the task.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.task.Clone(), nil
}

// entry looks up the task's entry under the map read lock.
func (s *MemoryStore) entry(id uuid.UUID) (*taskEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return entry, nil
}

// publish emits the task's current state. Called with the entry lock held
// so every observer sees transitions for one task in the same order; the
// broadcaster's sends are non-blocking, so this cannot stall the store.
func (s *MemoryStore) publish(task *domain.Task) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(task.ID, events.EventFromTask(task))
}

// archive persists a terminal task snapshot. Archive failures are logged,
// not surfaced: the in-memory record stays authoritative.
func (s *MemoryStore) archive(ctx context.Context, task *domain.Task) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveTask(ctx, task); err != nil {
		s.logger.Error("failed to archive terminal task",
			"task_id", task.ID,
			"kind", task.Kind,
			"error", err)
	}
}
