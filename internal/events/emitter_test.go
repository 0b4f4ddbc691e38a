package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewTaskRequestEvent("test-event", uuid.New(), map[string]string{"key": "value"})
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event, err := NewTaskRequestEvent("test-event", uuid.New(), nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		require.NoError(t, err)

		require.Len(t, handler1.received(), 1)
		require.Len(t, handler2.received(), 1)
		assert.Equal(t, event.ID, handler1.received()[0].ID)
	})

	t.Run("failing handler does not block others", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		failing := &MockEventHandler{err: errors.New("handler exploded")}
		working := &MockEventHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(working)

		event, err := NewTaskRequestEvent("test-event", uuid.New(), nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "handler exploded")
		assert.Len(t, working.received(), 1, "remaining handlers still receive the event")
	})
}
