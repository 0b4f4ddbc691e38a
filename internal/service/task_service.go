package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

// TaskCanceler cancels a queued or running task. Satisfied by
// *task.TaskRunner.
type TaskCanceler interface {
	Cancel(ctx context.Context, taskID uuid.UUID) error
}

// TaskService exposes a user's view of their background tasks.
// Like notes, task records are scoped to the requesting user; foreign
// records behave as if they do not exist.
type TaskService interface {
	// ListTasks returns the user's most recent task records, optionally
	// filtered by status. A non-positive limit means the default of 50.
	ListTasks(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error)

	// GetTask retrieves one of the user's task records.
	// Returns store.ErrTaskNotFound for missing and foreign records alike.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Record, error)

	// CancelTask cancels one of the user's unfinished tasks.
	// Returns store.ErrInvalidEntity if the task already finished.
	CancelTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	taskStore task.TaskStore
	canceler  TaskCanceler
	logger    *slog.Logger
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
func NewTaskService(taskStore task.TaskStore, canceler TaskCanceler, logger *slog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskStore: taskStore,
		canceler:  canceler,
		logger:    logger.With("component", "task_service"),
	}
}

// ListTasks returns the user's recent task records.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error) {
	records, err := s.taskStore.ListByUser(ctx, userID, status, limit)
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return records, nil
}

// GetTask retrieves a task record and verifies ownership.
func (s *TaskServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Record, error) {
	rec, err := s.getOwnedTask(ctx, userID, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to get task",
				"error", err,
				"task_id", taskID,
				"user_id", userID)
		}
		return nil, err
	}
	return rec, nil
}

// CancelTask cancels one of the user's unfinished tasks.
func (s *TaskServiceImpl) CancelTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if _, err := s.getOwnedTask(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.canceler.Cancel(ctx, taskID); err != nil {
		if !errors.Is(err, store.ErrInvalidEntity) && !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to cancel task",
				"error", err,
				"task_id", taskID,
				"user_id", userID)
		}
		return err
	}

	s.logger.Info("task canceled",
		"task_id", taskID,
		"user_id", userID)
	return nil
}

// getOwnedTask loads a record and hides it behind ErrTaskNotFound when it
// belongs to a different user.
func (s *TaskServiceImpl) getOwnedTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Record, error) {
	rec, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		s.logger.Debug("cross-user task access denied",
			"task_id", taskID,
			"user_id", userID)
		return nil, store.ErrTaskNotFound
	}
	return rec, nil
}
