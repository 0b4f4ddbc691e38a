package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyNoteContent is returned when the note content is empty.
	ErrEmptyNoteContent = errors.New("note content cannot be empty")
)
