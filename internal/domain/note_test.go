package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNote(t *testing.T) {
	userID := uuid.New()
	note, err := NewNote(userID, "Groceries", "milk eggs bread", "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, note.ID)
	assert.Equal(t, userID, note.UserID)
	assert.Equal(t, NoteContentTypeText, note.ContentType)
	assert.Equal(t, 3, note.WordCount)
	assert.NotNil(t, note.Tags)
	assert.Empty(t, note.Tags)
}

func TestNewNoteValidation(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name        string
		userID      uuid.UUID
		title       string
		content     string
		contentType NoteContentType
		wantErr     error
	}{
		{"missing user", uuid.Nil, "t", "c", NoteContentTypeText, ErrNoteUserIDEmpty},
		{"empty title", userID, "  ", "c", NoteContentTypeText, ErrEmptyNoteTitle},
		{"title too long", userID, strings.Repeat("t", 256), "c", NoteContentTypeText, ErrNoteTitleTooLong},
		{"empty content", userID, "t", "   ", NoteContentTypeText, ErrEmptyNoteContent},
		{"bad content type", userID, "t", "c", "html", ErrInvalidNoteType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNote(tt.userID, tt.title, tt.content, tt.contentType, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNoteSetContent(t *testing.T) {
	note, err := NewNote(uuid.New(), "Title", "one two", NoteContentTypeMarkdown, []string{"a"})
	require.NoError(t, err)
	require.Equal(t, 2, note.WordCount)

	before := note.UpdatedAt
	note.SetContent("one two three four")
	assert.Equal(t, 4, note.WordCount)
	assert.False(t, note.UpdatedAt.Before(before))
}
