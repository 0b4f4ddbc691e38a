package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/store"
)

// ResultProvider is implemented by tasks that produce a JSON result to be
// stored on their record after successful execution.
type ResultProvider interface {
	Result() json.RawMessage
}

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration

	// Retry controls backoff behaviour for failed tasks.
	// A zero value means DefaultRetryPolicy.
	Retry RetryPolicy
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
		Retry:                  DefaultRetryPolicy(),
	}
}

// TaskRunner manages background task processing: it persists submitted
// tasks, dispatches them to a worker pool, retries failures with jittered
// exponential backoff, and recovers unfinished tasks after a restart.
type TaskRunner struct {
	store      TaskStore
	registry   *Registry
	queue      *TaskQueue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner. The registry is used to rebuild
// executable tasks from persisted records during recovery; it may be
// populated after construction but must be complete before Start.
func NewTaskRunner(taskStore TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = DefaultRetryPolicy()
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:      taskStore,
		registry:   registry,
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom handler invoked when a task
// exhausts its retries.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit adds a new task to the queue
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	// Save task to database first
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start initializes the worker pool and begins processing tasks
func (r *TaskRunner) Start() error {
	// Recover unfinished tasks from previous runs
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
}

// Recover loads unfinished tasks from the database and requeues them.
// Tasks interrupted mid-processing by a crash are reset to pending first.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Processing tasks regardless of age: anything still marked processing
	// at startup was interrupted.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset interrupted task",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		rec.Status = TaskStatusPending
		pending = append(pending, rec)
	}

	for _, rec := range pending {
		t, err := r.registry.Rebuild(rec)
		if err != nil {
			r.logger.Error("failed to rebuild recovered task",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			if errors.Is(err, ErrUnknownTaskType) {
				// Nothing will ever be able to run this record.
				if updErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updErr != nil {
					r.logger.Error("failed to mark unrecoverable task",
						"task_id", rec.ID, "error", updErr)
				}
			}
			continue
		}

		if err := r.queue.Enqueue(t); err != nil {
			r.logger.Error("failed to requeue recovered task",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
		}
	}

	return nil
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.queue.GetChannel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task, including the retry
// decision when execution fails.
func (r *TaskRunner) processTask(t Task, workerID int) {
	ctx := r.ctx
	logger := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	// A user may have canceled the task while it sat in the queue.
	if rec, err := r.store.GetByID(ctx, t.ID()); err == nil && rec.Status == TaskStatusCanceled {
		logger.Info("skipping canceled task")
		return
	}

	if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")

	err := t.Execute(ctx)

	// The user may have canceled the task while it was executing. Canceled
	// is terminal: the outcome of the execution is discarded either way.
	if r.canceledMeanwhile(ctx, t.ID()) {
		logger.Info("discarding outcome of canceled task")
		return
	}

	if err == nil {
		logger.Info("task completed successfully")
		if rp, ok := t.(ResultProvider); ok {
			if result := rp.Result(); result != nil {
				if setErr := r.store.SetTaskResult(ctx, t.ID(), result); setErr != nil {
					logger.Error("failed to store task result", "error", setErr)
				}
			}
		}
		if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
		return
	}

	logger.Error("task execution failed", "error", err)

	attempts, attErr := r.store.IncrementAttempts(ctx, t.ID())
	if attErr != nil {
		logger.Error("failed to increment attempt count", "error", attErr)
		attempts = r.config.Retry.MaxAttempts // fail permanently below
	}

	if r.config.Retry.ShouldRetry(attempts) {
		delay := r.config.Retry.Delay(attempts)
		logger.Info("scheduling task retry",
			"attempts", attempts,
			"max_attempts", r.config.Retry.MaxAttempts,
			"delay", delay)

		if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending, err.Error()); updateErr != nil {
			logger.Error("failed to reset task status for retry", "error", updateErr)
			return
		}

		r.wg.Add(1)
		go r.requeueAfter(t, delay)
		return
	}

	logger.Error("task failed permanently",
		"attempts", attempts,
		"max_attempts", r.config.Retry.MaxAttempts)
	if updateErr := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
		logger.Error("failed to update task status to failed", "error", updateErr)
	}
	r.errHandler(t, err)
}

// requeueAfter re-enqueues a task after the backoff delay, unless the
// runner is shutting down.
func (r *TaskRunner) requeueAfter(t Task, delay time.Duration) {
	defer r.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-r.ctx.Done():
		// Shutdown during backoff: the task stays pending in the store and
		// is picked up by Recover on the next start.
		return
	case <-timer.C:
	}

	if err := r.queue.Enqueue(t); err != nil {
		r.logger.Error("failed to requeue task after backoff",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
	}
}

// stuckTaskMonitor periodically checks for tasks that have been in
// "processing" state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}

			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuck))

			for _, rec := range stuck {
				if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
					"reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task status",
						"task_id", rec.ID,
						"task_type", rec.Type,
						"error", err)
					continue
				}

				t, err := r.registry.Rebuild(rec)
				if err != nil {
					r.logger.Error("failed to rebuild stuck task",
						"task_id", rec.ID,
						"task_type", rec.Type,
						"error", err)
					continue
				}

				if err := r.queue.Enqueue(t); err != nil {
					r.logger.Error("failed to requeue stuck task",
						"task_id", rec.ID,
						"task_type", rec.Type,
						"error", err)
				} else {
					r.logger.Info("requeued stuck task",
						"task_id", rec.ID,
						"task_type", rec.Type)
				}
			}
		}
	}
}

// canceledMeanwhile reports whether the record reached the canceled state
// behind the worker's back, typically via Cancel during Execute.
func (r *TaskRunner) canceledMeanwhile(ctx context.Context, taskID uuid.UUID) bool {
	rec, err := r.store.GetByID(ctx, taskID)
	return err == nil && rec.Status == TaskStatusCanceled
}

// Cancel marks a task canceled if it has not finished yet.
// Returns store.ErrTaskNotFound if the record does not exist.
func (r *TaskRunner) Cancel(ctx context.Context, taskID uuid.UUID) error {
	rec, err := r.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return fmt.Errorf("%w: task already %s", store.ErrInvalidEntity, rec.Status)
	}
	return r.store.UpdateTaskStatus(ctx, taskID, TaskStatusCanceled, "")
}
