package events

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives and can be configured
// to return an error.
type MockEventHandler struct {
	mu     sync.Mutex
	events []*TaskRequestEvent
	err    error
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *MockEventHandler) received() []*TaskRequestEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events
}

func TestNewTaskRequestEvent(t *testing.T) {
	userID := uuid.New()
	event, err := NewTaskRequestEvent("note_enhancement", userID, map[string]string{"note_id": "abc"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "note_enhancement", event.Type)
	assert.Equal(t, userID, event.UserID)
	assert.False(t, event.CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "abc", payload["note_id"])
}

func TestNewTaskRequestEventUnserializablePayload(t *testing.T) {
	_, err := NewTaskRequestEvent("note_enhancement", uuid.New(), make(chan int))
	assert.Error(t, err)
}
