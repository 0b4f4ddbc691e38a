// Package task implements the background task engine: a buffered in-memory
// queue, a worker pool with retry and crash recovery, and the concrete tasks
// the Companion API runs asynchronously (note enhancement, summarization,
// record cleanup). Task state is persisted so users can inspect and cancel
// their own tasks through the API.
package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCanceled   TaskStatus = "canceled"
)

// IsTerminal reports whether a task in this status will never run again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCanceled
}

// Task type constants
const (
	// TaskTypeNoteEnhancement rewrites a note's content with AI assistance.
	TaskTypeNoteEnhancement = "note_enhancement"

	// TaskTypeNoteSummary produces a short AI summary of a note.
	TaskTypeNoteSummary = "note_summary"

	// TaskTypeCleanup prunes old finished task records.
	TaskTypeCleanup = "cleanup"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// UserID returns the ID of the user the task belongs to.
	// Returns uuid.Nil for system tasks (e.g. cleanup).
	UserID() uuid.UUID

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Record is the persisted form of a task. The store reads and writes
// Records; the registry turns a Record back into an executable Task
// during crash recovery.
type Record struct {
	ID           uuid.UUID
	Type         string
	UserID       uuid.UUID
	Payload      json.RawMessage
	Status       TaskStatus
	Attempts     int
	Result       json.RawMessage
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a new task record.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task, recording the error
	// message for failures and maintaining started/completed timestamps.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// SetTaskResult stores the JSON result of a completed task.
	SetTaskResult(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error

	// IncrementAttempts bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, taskID uuid.UUID) (int, error)

	// GetByID retrieves a single task record.
	// Returns store.ErrTaskNotFound if no record exists.
	GetByID(ctx context.Context, taskID uuid.UUID) (*Record, error)

	// GetPendingTasks retrieves all records with "pending" status.
	GetPendingTasks(ctx context.Context) ([]*Record, error)

	// GetProcessingTasks retrieves records with "processing" status.
	// If olderThan is non-zero, only returns records that have been in this
	// state longer than the specified duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*Record, error)

	// ListByUser retrieves up to limit of the user's most recent task
	// records, optionally filtered by status.
	ListByUser(ctx context.Context, userID uuid.UUID, status TaskStatus, limit int) ([]*Record, error)

	// DeleteFinishedBefore removes completed/failed/canceled records whose
	// completion predates the cutoff. Returns the number of rows removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// Factory rebuilds an executable Task from its persisted Record.
type Factory func(rec *Record) (Task, error)

// ErrUnknownTaskType is returned by the registry when no factory is
// registered for a record's task type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Registry maps task types to factories so the runner can reconstruct
// executable tasks from persisted records after a restart.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates a factory with a task type, replacing any previous one.
func (r *Registry) Register(taskType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = factory
}

// Rebuild turns a persisted record back into an executable task.
// Returns ErrUnknownTaskType if no factory is registered for the type.
func (r *Registry) Rebuild(rec *Record) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, rec.Type)
	}
	return factory(rec)
}
