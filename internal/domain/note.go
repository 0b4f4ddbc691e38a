package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note validation errors
var (
	ErrEmptyNoteID      = errors.New("note ID cannot be empty")
	ErrNoteUserIDEmpty  = errors.New("note must have a user ID")
	ErrEmptyNoteTitle   = errors.New("note title cannot be empty")
	ErrNoteTitleTooLong = errors.New("note title must be at most 255 characters")
	ErrEmptyNoteContent = errors.New("note content cannot be empty")
	ErrInvalidNoteType  = errors.New("invalid note content type")
)

// NoteContentType identifies how note content should be interpreted.
type NoteContentType string

// Supported note content types
const (
	NoteContentTypeText     NoteContentType = "text"
	NoteContentTypeMarkdown NoteContentType = "markdown"
)

// Note represents a user's note, optionally enriched by background
// AI enhancement and summarization tasks.
type Note struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	ContentType     NoteContentType `json:"content_type"`
	Tags            []string        `json:"tags"`
	WordCount       int             `json:"word_count"`
	EnhancedContent string          `json:"enhanced_content,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewNote creates a new Note owned by the given user.
// It generates a new UUID, derives the word count from the content, and
// sets the creation/update timestamps. Returns an error if validation fails.
func NewNote(userID uuid.UUID, title, content string, contentType NoteContentType, tags []string) (*Note, error) {
	if contentType == "" {
		contentType = NoteContentTypeText
	}
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	note := &Note{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Content:     content,
		ContentType: contentType,
		Tags:        tags,
		WordCount:   countWords(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := note.Validate(); err != nil {
		return nil, err
	}

	return note, nil
}

// Validate checks if the Note has valid data.
// Returns an error if any field fails validation.
func (n *Note) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNoteID
	}
	if n.UserID == uuid.Nil {
		return ErrNoteUserIDEmpty
	}
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyNoteTitle
	}
	if len(n.Title) > 255 {
		return ErrNoteTitleTooLong
	}
	if strings.TrimSpace(n.Content) == "" {
		return ErrEmptyNoteContent
	}
	switch n.ContentType {
	case NoteContentTypeText, NoteContentTypeMarkdown:
	default:
		return ErrInvalidNoteType
	}
	return nil
}

// SetContent replaces the note content and keeps the word count in sync.
func (n *Note) SetContent(content string) {
	n.Content = content
	n.WordCount = countWords(content)
	n.UpdatedAt = time.Now().UTC()
}

// countWords returns the number of whitespace-separated words in s.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// NoteStats aggregates a user's notes: totals, a per-content-type
// breakdown, and the set of distinct tags in use.
type NoteStats struct {
	TotalNotes   int            `json:"total_notes"`
	TotalWords   int            `json:"total_words"`
	ContentTypes map[string]int `json:"content_types"`
	UniqueTags   []string       `json:"unique_tags"`
	TagsCount    int            `json:"tags_count"`
}
