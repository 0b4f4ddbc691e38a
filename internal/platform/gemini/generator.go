package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/companion-app/companion-api/internal/config"
	"github.com/companion-app/companion-api/internal/generation"
)

// defaultRetryDelay is the base delay for the first retry; subsequent
// retries back off exponentially from it.
const defaultRetryDelay = 2 * time.Second

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string

	enhanceTmpl *template.Template
	summaryTmpl *template.Template
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new instance of GeminiGenerator with the
// provided dependencies. It validates the configuration and initializes
// the underlying API client.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	enhanceTmpl, err := template.New("enhance").Parse(enhancePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse enhancement prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	summaryTmpl, err := template.New("summary").Parse(summaryPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse summary prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:      logger,
		config:      cfg,
		client:      client,
		model:       cfg.ModelName,
		enhanceTmpl: enhanceTmpl,
		summaryTmpl: summaryTmpl,
	}, nil
}

// EnhanceNote rewrites the note content with improved clarity, grammar and
// structure while preserving its meaning.
func (g *GeminiGenerator) EnhanceNote(ctx context.Context, title, content string) (*generation.EnhancementResult, error) {
	prompt, err := g.buildPrompt(ctx, g.enhanceTmpl, title, content)
	if err != nil {
		return nil, err
	}

	text, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &generation.EnhancementResult{
		EnhancedContent: text,
		ModelName:       g.model,
	}, nil
}

// SummarizeNote produces a concise summary of the note content.
func (g *GeminiGenerator) SummarizeNote(ctx context.Context, title, content string) (*generation.SummaryResult, error) {
	prompt, err := g.buildPrompt(ctx, g.summaryTmpl, title, content)
	if err != nil {
		return nil, err
	}

	text, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &generation.SummaryResult{
		Summary:   text,
		ModelName: g.model,
	}, nil
}

// buildPrompt renders the given template with the note's title and content.
func (g *GeminiGenerator) buildPrompt(ctx context.Context, tmpl *template.Template, title, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyNoteContent
	}

	g.logger.DebugContext(ctx, "generating prompt from template",
		"content_length", len(content),
		"template_name", tmpl.Name())

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Title: title, Content: content}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return buf.String(), nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential
// backoff retry logic.
//
// It attempts to call the API up to config.MaxRetries+1 times, using
// exponential backoff with jitter between retries for transient errors.
// Permanent errors (like content being blocked by safety filters) are
// returned immediately without retrying.
func (g *GeminiGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1,
			"model", g.model)

		text, transient, err := g.generate(ctx, prompt)
		if err == nil {
			g.logger.InfoContext(ctx, "Gemini API call successful",
				"attempt", attemptNum,
				"response_length", len(text))
			return text, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if !transient {
			return "", err
		}

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * rand[0.5, 1.0)
		backoff := float64(defaultRetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// generate makes a single API call and classifies any failure as transient
// or permanent.
func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (text string, transient bool, err error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		// Network and server-side errors are assumed transient.
		return "", true, fmt.Errorf("gemini API call error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", false, fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", false, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	return out, false, nil
}
