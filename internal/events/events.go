package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskRequestEvent asks for a background task to be created. Services emit
// these instead of touching the task package directly; the event's ID
// becomes the created task's ID, which is how a service can hand a task ID
// back to the client before the task exists.
type TaskRequestEvent struct {
	ID uuid.UUID `json:"id"`

	// Type selects which task factory will handle the request.
	Type string `json:"type"`

	// UserID scopes the task to its owner. uuid.Nil means a system task.
	UserID uuid.UUID `json:"user_id"`

	// Payload is the task-specific data, already serialized.
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the payload into v.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent builds an event with a fresh ID, serializing payload
// to JSON.
func NewTaskRequestEvent(eventType string, userID uuid.UUID, payload interface{}) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler consumes task request events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes task request events to whatever handlers are
// registered. Services depend on this interface, never on a concrete
// emitter.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
