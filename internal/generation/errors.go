package generation

import "errors"

// Sentinel errors for content generation. The task layer keys retry
// decisions off ErrTransientFailure; everything else fails the task.
var (
	// ErrGenerationFailed covers failures with no more specific cause.
	ErrGenerationFailed = errors.New("failed to generate content")

	// ErrInvalidResponse means the model replied but the reply could not
	// be used.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked means the model refused the input on safety
	// grounds. Retrying the same input will not help.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure marks errors worth retrying, like rate limits
	// or upstream timeouts.
	ErrTransientFailure = errors.New("transient error during content generation")

	// ErrInvalidConfig is returned at construction when generator
	// configuration is unusable.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
