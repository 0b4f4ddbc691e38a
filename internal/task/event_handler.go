package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/events"
)

// TaskRequestHandler turns TaskRequestEvents into executable tasks and
// submits them to the runner. It implements events.EventHandler so services
// can request background work without importing this package.
type TaskRequestHandler struct {
	runner   *TaskRunner
	registry *Registry
	logger   *slog.Logger
}

var _ events.EventHandler = (*TaskRequestHandler)(nil)

// NewTaskRequestHandler creates a handler backed by the given runner and
// registry.
func NewTaskRequestHandler(runner *TaskRunner, registry *Registry, logger *slog.Logger) *TaskRequestHandler {
	return &TaskRequestHandler{
		runner:   runner,
		registry: registry,
		logger:   logger.With("component", "task_request_handler"),
	}
}

// HandleEvent builds the task named by the event through the registry and
// submits it. The event's ID becomes the task's ID so callers can poll the
// task's status with the identifier they got back, and the event's user is
// carried onto the persisted record even when the task type does not encode
// it in its payload.
func (h *TaskRequestHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	rec := &Record{
		ID:      event.ID,
		Type:    event.Type,
		UserID:  event.UserID,
		Payload: event.Payload,
		Status:  TaskStatusPending,
	}

	t, err := h.registry.Rebuild(rec)
	if err != nil {
		return fmt.Errorf("failed to build task from event: %w", err)
	}

	if err := h.runner.Submit(ctx, &eventTask{Task: t, userID: event.UserID}); err != nil {
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Debug("task submitted from event",
		"event_id", event.ID,
		"task_type", event.Type)
	return nil
}

// eventTask decorates a rebuilt task with the user carried on the
// originating event, so Submit persists that user instead of whatever the
// factory happened to reconstruct.
type eventTask struct {
	Task
	userID uuid.UUID
}

var _ ResultProvider = (*eventTask)(nil)

func (t *eventTask) UserID() uuid.UUID { return t.userID }

// Result forwards to the wrapped task when it produces one.
func (t *eventTask) Result() json.RawMessage {
	if rp, ok := t.Task.(ResultProvider); ok {
		return rp.Result()
	}
	return nil
}
