package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/companion-app/companion-api/internal/api/shared"
	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/task"
)

// TaskHandler handles background task API requests. All routes require
// authentication and are scoped to the authenticated user's own tasks.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With("component", "task_handler"),
	}
}

// ListTasks handles GET /tasks with optional status and limit query
// parameters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	status := task.TaskStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.taskService.ListTasks(r.Context(), userID, status, limit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(records))}
	for _, rec := range records {
		resp.Tasks = append(resp.Tasks, NewTaskResponse(rec))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.taskService.GetTask(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskResponse(rec))
}

// CancelTask handles POST /tasks/{id}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := requireUserAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.CancelTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
