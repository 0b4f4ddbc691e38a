package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctxWithTrace := SetTraceID(ctx)
	traceID := GetTraceID(ctxWithTrace)
	assert.Len(t, traceID, 32, "trace ID should be 32 hex characters")

	_, err := hex.DecodeString(traceID)
	assert.NoError(t, err, "trace ID should be valid hex")

	assert.Empty(t, GetTraceID(ctx), "original context should be untouched")
}

func TestGetTraceIDWithInvalidValue(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestGenerateTraceIDUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		id := generateTraceID()
		assert.Len(t, id, 32)
		assert.False(t, seen[id], "trace IDs should be unique")
		seen[id] = true
	}
}

func TestTimeBasedTraceIDFormat(t *testing.T) {
	id := timeBasedTraceID()
	assert.Len(t, id, 32)

	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}
