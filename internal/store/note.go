package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
)

// NoteSortField enumerates the columns a note listing may be ordered by.
type NoteSortField string

// Valid note sort fields
const (
	NoteSortCreatedAt NoteSortField = "created_at"
	NoteSortUpdatedAt NoteSortField = "updated_at"
	NoteSortTitle     NoteSortField = "title"
)

// NoteListParams controls filtering, ordering, and pagination of note listings.
type NoteListParams struct {
	// Search matches case-insensitively against title and content when non-empty.
	Search string

	// Tags filters to notes carrying every listed tag when non-empty.
	Tags []string

	// ContentType filters by content type when non-empty.
	ContentType domain.NoteContentType

	// Page is 1-based; PageSize is clamped to [1, 100].
	Page     int
	PageSize int

	SortBy         NoteSortField
	SortDescending bool
}

// Normalize applies defaults and clamps pagination bounds.
func (p *NoteListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	switch p.SortBy {
	case NoteSortCreatedAt, NoteSortUpdatedAt, NoteSortTitle:
	default:
		p.SortBy = NoteSortCreatedAt
		p.SortDescending = true
	}
}

// NoteStore defines the interface for note data persistence.
type NoteStore interface {
	// Create saves a new note to the store.
	// Returns ErrInvalidEntity if the owning user does not exist.
	// Returns validation errors from the domain Note if data is invalid.
	Create(ctx context.Context, note *domain.Note) error

	// GetByID retrieves a note by its unique ID.
	// Returns ErrNoteNotFound if the note does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)

	// Update saves changes to an existing note.
	// Returns ErrNoteNotFound if the note does not exist.
	Update(ctx context.Context, note *domain.Note) error

	// Delete removes a note from the store by its ID.
	// Returns ErrNoteNotFound if the note does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser retrieves a page of notes owned by the given user along with
	// the total number of notes matching the filter.
	ListByUser(ctx context.Context, userID uuid.UUID, params NoteListParams) ([]*domain.Note, int, error)

	// GetStatsByUser aggregates the user's notes into counts and tag usage.
	GetStatsByUser(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error)

	// WithTx returns a new NoteStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NoteStore
}
