package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/platform/logger"
)

// CleanupPayload is the persisted payload for cleanup tasks.
type CleanupPayload struct {
	// OlderThanHours is the minimum age of finished task records to delete.
	OlderThanHours int `json:"older_than_hours"`
}

// DefaultCleanupAge is used when a cleanup task is created without an
// explicit retention window.
const DefaultCleanupAge = 24 * time.Hour

// CleanupTask deletes finished task records older than a cutoff. It is a
// system task with no owning user.
type CleanupTask struct {
	id      uuid.UUID
	payload CleanupPayload
	store   TaskStore
	result  json.RawMessage
}

var _ Task = (*CleanupTask)(nil)
var _ ResultProvider = (*CleanupTask)(nil)

// NewCleanupTask creates a task that removes finished task records older
// than the given duration. A non-positive duration means DefaultCleanupAge.
func NewCleanupTask(taskStore TaskStore, olderThan time.Duration) (*CleanupTask, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if olderThan <= 0 {
		olderThan = DefaultCleanupAge
	}

	return &CleanupTask{
		id:      uuid.New(),
		payload: CleanupPayload{OlderThanHours: int(olderThan.Hours())},
		store:   taskStore,
	}, nil
}

// ID returns the task's unique identifier
func (t *CleanupTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *CleanupTask) Type() string { return TaskTypeCleanup }

// UserID returns uuid.Nil: cleanup is a system task
func (t *CleanupTask) UserID() uuid.UUID { return uuid.Nil }

// Payload returns the serialized task data
func (t *CleanupTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Status returns the current status of the task
func (t *CleanupTask) Status() TaskStatus { return TaskStatusPending }

// Result returns the number of deleted records from the last run.
func (t *CleanupTask) Result() json.RawMessage { return t.result }

// Execute deletes finished task records older than the configured cutoff.
func (t *CleanupTask) Execute(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(t.payload.OlderThanHours) * time.Hour)

	deleted, err := t.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old task records: %w", err)
	}

	t.result, err = json.Marshal(map[string]int64{"deleted": deleted})
	if err != nil {
		t.result = nil
	}

	logger.FromContextOrDefault(ctx, nil).Info("task record cleanup finished",
		"deleted", deleted,
		"cutoff", cutoff)
	return nil
}

// NewCleanupFactory returns a Factory that rebuilds cleanup tasks from
// persisted records during recovery.
func NewCleanupFactory(taskStore TaskStore) Factory {
	return func(rec *Record) (Task, error) {
		var payload CleanupPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid cleanup payload: %w", err)
		}
		t, err := NewCleanupTask(taskStore, time.Duration(payload.OlderThanHours)*time.Hour)
		if err != nil {
			return nil, err
		}
		t.id = rec.ID
		return t, nil
	}
}
