package gemini

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/companion-app/companion-api/internal/config"
	"github.com/companion-app/companion-api/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewGeminiGeneratorValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeminiGenerator(ctx, nil, config.LLMConfig{
			GeminiAPIKey: "key", ModelName: "gemini-2.0-flash",
		})
		assert.Error(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeminiGenerator(ctx, testLogger(), config.LLMConfig{
			ModelName: "gemini-2.0-flash",
		})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeminiGenerator(ctx, testLogger(), config.LLMConfig{
			GeminiAPIKey: "key",
		})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	g := &GeminiGenerator{
		logger:      testLogger(),
		enhanceTmpl: template.Must(template.New("enhance").Parse(enhancePromptTemplate)),
		summaryTmpl: template.Must(template.New("summary").Parse(summaryPromptTemplate)),
	}

	t.Run("renders title and content", func(t *testing.T) {
		t.Parallel()
		prompt, err := g.buildPrompt(context.Background(), g.enhanceTmpl, "Trip plan", "pack bags, book hotel")
		require.NoError(t, err)
		assert.True(t, strings.Contains(prompt, "Trip plan"))
		assert.True(t, strings.Contains(prompt, "pack bags, book hotel"))
	})

	t.Run("rejects empty content", func(t *testing.T) {
		t.Parallel()
		_, err := g.buildPrompt(context.Background(), g.summaryTmpl, "Title", "   ")
		assert.ErrorIs(t, err, ErrEmptyNoteContent)
	})
}
