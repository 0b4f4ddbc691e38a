package generation

import (
	"context"
)

// EnhancementResult holds the output of a note enhancement request.
type EnhancementResult struct {
	// EnhancedContent is the improved version of the note content.
	EnhancedContent string
	// ModelName identifies the model that produced the result.
	ModelName string
}

// SummaryResult holds the output of a note summarization request.
type SummaryResult struct {
	// Summary is a short prose summary of the note content.
	Summary string
	// ModelName identifies the model that produced the result.
	ModelName string
}

// Generator defines the interface for AI-assisted note processing.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// EnhanceNote rewrites the note content with improved clarity, grammar
	// and structure while preserving its meaning.
	//
	// Returns an EnhancementResult or an error if generation fails
	// (see errors.go for specific types).
	EnhanceNote(ctx context.Context, title, content string) (*EnhancementResult, error)

	// SummarizeNote produces a concise summary of the note content.
	//
	// Returns a SummaryResult or an error if generation fails
	// (see errors.go for specific types).
	SummarizeNote(ctx context.Context, title, content string) (*SummaryResult, error)
}
