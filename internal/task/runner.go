package task

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/platform/clock"
	"github.com/fableforge/fable-api/internal/progress"
)

// MetricRecorder receives one record per finished attempt, success or
// failure, with the measured wall-clock duration.
type MetricRecorder interface {
	Record(kind domain.TaskKind, durationSeconds float64, parameters map[string]any, success bool) error
}

// SummarySource seeds synthetic progress with historical durations.
type SummarySource interface {
	Summary(kind domain.TaskKind) domain.PerformanceSummary
}

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int

	// QueueSize determines the buffer size of the job queue.
	QueueSize int

	// Estimator parameterizes the synthetic progress curve.
	Estimator progress.Config
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		Estimator:   progress.DefaultConfig(),
	}
}

// Runner processes submitted jobs on a pool of workers, decoupled from the
// request path that created their tasks. For each job it marks the task
// running, advances synthetic progress while the work executes, applies
// the terminal transition, and records a performance metric. Worker
// failures are never swallowed: they always become a failed task and a
// success=false metric.
type Runner struct {
	store      Store
	queue      *Queue
	metrics    MetricRecorder
	summaries  SummarySource
	estimator  progress.Config
	clock      clock.Clock
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a Runner. Invalid config values fall back to defaults.
func NewRunner(
	store Store,
	metrics MetricRecorder,
	summaries SummarySource,
	config RunnerConfig,
	clk clock.Clock,
	logger *slog.Logger,
) *Runner {
	defaults := DefaultRunnerConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.Estimator.TickInterval <= 0 {
		config.Estimator = defaults.Estimator
	}
	if clk == nil {
		clk = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		queue:      NewQueue(config.QueueSize, logger),
		metrics:    metrics,
		summaries:  summaries,
		estimator:  config.Estimator,
		clock:      clk,
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "task_runner"),
	}
}

// Submit adds a job to the queue. The job's task must already exist in the
// store; callers fail the task themselves when submission is rejected.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.queue.Enqueue(job); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	return nil
}

// Start launches the worker pool.
func (r *Runner) Start() {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.logger.Info("task runner started", "worker_count", r.config.WorkerCount)
}

// Stop gracefully shuts down the runner. In-flight jobs observe the
// cancelled context; queued jobs are dropped.
func (r *Runner) Stop() {
	r.queue.Close()
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// worker drains the queue until shutdown.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-r.queue.Chan():
			if !ok {
				r.logger.Debug("queue closed, stopping worker", "worker_id", id)
				return
			}
			r.processJob(job, id)
		}
	}
}

// processJob drives one job through the full lifecycle contract.
func (r *Runner) processJob(job Job, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"task_id", job.TaskID(),
		"kind", job.Kind(),
		"worker_id", workerID,
	)

	if err := r.store.MarkRunning(ctx, job.TaskID()); err != nil {
		logger.Error("failed to mark task running", "error", err)
		return
	}

	logger.Info("processing task")

	start := r.clock.Now()

	progressCtx, stopProgress := context.WithCancel(r.ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.advanceSyntheticProgress(progressCtx, job.TaskID(), job.Kind())
	}()

	result, execErr := job.Execute(r.ctx)
	stopProgress()

	duration := r.clock.Now().Sub(start)

	if execErr != nil {
		logger.Error("task execution failed", "error", execErr, "duration", duration)
		if err := r.store.Fail(ctx, job.TaskID(), execErr.Error()); err != nil {
			logger.Error("failed to mark task failed", "error", err)
		}
	} else {
		logger.Info("task completed", "duration", duration)
		if err := r.store.Complete(ctx, job.TaskID(), result); err != nil {
			logger.Error("failed to mark task completed", "error", err)
		}
	}

	if err := r.metrics.Record(job.Kind(), duration.Seconds(), job.Parameters(), execErr == nil); err != nil {
		logger.Error("failed to record performance metric", "error", err)
	}
}

// advanceSyntheticProgress walks the task's progress along the estimated
// curve once per tick until the job finishes. The increment is seeded once
// from the kind's rolling average; the accumulated value never reaches the
// ceiling-reserved range, and the terminal transition owns the snap to 100
// (or halts the curve on failure).
func (r *Runner) advanceSyntheticProgress(ctx context.Context, taskID uuid.UUID, kind domain.TaskKind) {
	summary := r.summaries.Summary(kind)
	estimated := time.Duration(summary.AverageDurationSeconds * float64(time.Second))
	increment := r.estimator.IncrementPerTick(estimated)
	message := progressMessage(kind)

	current := 0.0
	if snapshot, err := r.store.Get(ctx, taskID); err == nil {
		current = float64(snapshot.Progress)
	}

	ticker := time.NewTicker(r.estimator.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current = r.estimator.Advance(current, increment)
			err := r.store.UpdateProgress(ctx, taskID, int(math.Round(current)), message)
			if err != nil {
				// The task reached a terminal state; stop the curve.
				return
			}
		}
	}
}

// progressMessage returns the message shown while a kind is in flight.
func progressMessage(kind domain.TaskKind) string {
	switch kind {
	case domain.KindBrainstorm:
		return "Generating plot ideas..."
	case domain.KindPlot:
		return "Generating plot and characters..."
	case domain.KindCharacter:
		return "Creating characters..."
	case domain.KindOutline:
		return "Generating chapter outlines..."
	case domain.KindChapter:
		return "Writing chapter..."
	case domain.KindEdit:
		return "Editing content..."
	case domain.KindScore:
		return "Scoring content..."
	default:
		return "Processing..."
	}
}
