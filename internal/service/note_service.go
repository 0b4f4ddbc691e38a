package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/events"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

// NoteUpdate carries the optional fields a note update may change.
// Nil pointers mean "leave unchanged".
type NoteUpdate struct {
	Title       *string
	Content     *string
	ContentType *domain.NoteContentType
	Tags        *[]string
}

// NoteService provides note management operations. All operations are
// scoped to the requesting user; a note owned by someone else behaves as
// if it does not exist.
type NoteService interface {
	// CreateNote creates a new note for the user.
	CreateNote(ctx context.Context, userID uuid.UUID, title, content string, contentType domain.NoteContentType, tags []string) (*domain.Note, error)

	// GetNote retrieves one of the user's notes.
	// Returns store.ErrNoteNotFound for missing and foreign notes alike.
	GetNote(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error)

	// UpdateNote applies the given changes to one of the user's notes.
	UpdateNote(ctx context.Context, userID, noteID uuid.UUID, update NoteUpdate) (*domain.Note, error)

	// DeleteNote removes one of the user's notes.
	DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error

	// ListNotes returns a page of the user's notes and the total count
	// matching the filter.
	ListNotes(ctx context.Context, userID uuid.UUID, params store.NoteListParams) ([]*domain.Note, int, error)

	// GetNoteStats aggregates the user's notes: totals, content type
	// breakdown, and distinct tags.
	GetNoteStats(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error)

	// EnhanceNote requests background AI enhancement of a note and returns
	// the ID of the created task. Returns ErrAIDisabled when no LLM is
	// configured.
	EnhanceNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error)

	// SummarizeNote requests background AI summarization of a note and
	// returns the ID of the created task. Returns ErrAIDisabled when no
	// LLM is configured.
	SummarizeNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error)
}

// NoteServiceImpl implements the NoteService interface.
type NoteServiceImpl struct {
	noteStore store.NoteStore
	emitter   events.EventEmitter
	db        *sql.DB
	logger    *slog.Logger
	aiEnabled bool
}

var _ NoteService = (*NoteServiceImpl)(nil)

// NewNoteService creates a new NoteService. The emitter may be nil when AI
// features are disabled; EnhanceNote and SummarizeNote then return
// ErrAIDisabled.
func NewNoteService(noteStore store.NoteStore, emitter events.EventEmitter, db *sql.DB, logger *slog.Logger) *NoteServiceImpl {
	return &NoteServiceImpl{
		noteStore: noteStore,
		emitter:   emitter,
		db:        db,
		logger:    logger.With("component", "note_service"),
		aiEnabled: emitter != nil,
	}
}

// CreateNote creates a new note owned by the user.
func (s *NoteServiceImpl) CreateNote(ctx context.Context, userID uuid.UUID, title, content string, contentType domain.NoteContentType, tags []string) (*domain.Note, error) {
	note, err := domain.NewNote(userID, title, content, contentType, tags)
	if err != nil {
		s.logger.Debug("note creation rejected by domain validation",
			"error", err,
			"user_id", userID)
		return nil, err
	}

	if err := s.noteStore.Create(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			"error", err,
			"user_id", userID)
		return nil, err
	}

	s.logger.Info("note created",
		"note_id", note.ID,
		"user_id", userID)
	return note, nil
}

// GetNote retrieves a note and verifies ownership.
func (s *NoteServiceImpl) GetNote(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error) {
	return s.getOwnedNote(ctx, s.noteStore, userID, noteID)
}

// UpdateNote applies changes to a note within a transaction.
func (s *NoteServiceImpl) UpdateNote(ctx context.Context, userID, noteID uuid.UUID, update NoteUpdate) (*domain.Note, error) {
	var updated *domain.Note

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.noteStore.WithTx(tx)

		note, err := s.getOwnedNote(ctx, txStore, userID, noteID)
		if err != nil {
			return err
		}

		if update.Title != nil {
			note.Title = *update.Title
		}
		if update.Content != nil {
			note.SetContent(*update.Content)
		}
		if update.ContentType != nil {
			note.ContentType = *update.ContentType
		}
		if update.Tags != nil {
			note.Tags = *update.Tags
		}

		if err := txStore.Update(ctx, note); err != nil {
			return err
		}

		updated = note
		return nil
	})

	if err != nil {
		if !errors.Is(err, store.ErrNoteNotFound) && !errors.Is(err, domain.ErrValidation) {
			s.logger.Error("failed to update note",
				"error", err,
				"note_id", noteID,
				"user_id", userID)
		}
		return nil, err
	}

	s.logger.Info("note updated",
		"note_id", noteID,
		"user_id", userID)
	return updated, nil
}

// DeleteNote removes a note after verifying ownership.
func (s *NoteServiceImpl) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.noteStore.WithTx(tx)

		if _, err := s.getOwnedNote(ctx, txStore, userID, noteID); err != nil {
			return err
		}

		return txStore.Delete(ctx, noteID)
	})

	if err != nil {
		if !errors.Is(err, store.ErrNoteNotFound) {
			s.logger.Error("failed to delete note",
				"error", err,
				"note_id", noteID,
				"user_id", userID)
		}
		return err
	}

	s.logger.Info("note deleted",
		"note_id", noteID,
		"user_id", userID)
	return nil
}

// ListNotes returns a filtered page of the user's notes plus the total count.
func (s *NoteServiceImpl) ListNotes(ctx context.Context, userID uuid.UUID, params store.NoteListParams) ([]*domain.Note, int, error) {
	notes, total, err := s.noteStore.ListByUser(ctx, userID, params)
	if err != nil {
		s.logger.Error("failed to list notes",
			"error", err,
			"user_id", userID)
		return nil, 0, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, total, nil
}

// GetNoteStats aggregates the user's notes.
func (s *NoteServiceImpl) GetNoteStats(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error) {
	stats, err := s.noteStore.GetStatsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to aggregate note stats",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to aggregate note stats: %w", err)
	}
	return stats, nil
}

// EnhanceNote emits a task request to enhance the note in the background.
func (s *NoteServiceImpl) EnhanceNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error) {
	return s.requestNoteTask(ctx, userID, noteID, task.TaskTypeNoteEnhancement)
}

// SummarizeNote emits a task request to summarize the note in the background.
func (s *NoteServiceImpl) SummarizeNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error) {
	return s.requestNoteTask(ctx, userID, noteID, task.TaskTypeNoteSummary)
}

// requestNoteTask verifies ownership, then emits a TaskRequestEvent of the
// given type. The event's ID doubles as the task ID returned to the caller.
func (s *NoteServiceImpl) requestNoteTask(ctx context.Context, userID, noteID uuid.UUID, taskType string) (uuid.UUID, error) {
	if !s.aiEnabled {
		return uuid.Nil, ErrAIDisabled
	}

	if _, err := s.getOwnedNote(ctx, s.noteStore, userID, noteID); err != nil {
		return uuid.Nil, err
	}

	event, err := events.NewTaskRequestEvent(taskType, userID, task.NotePayload{
		NoteID: noteID,
		UserID: userID,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build task request event: %w", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit note task request",
			"error", err,
			"note_id", noteID,
			"task_type", taskType)
		return uuid.Nil, fmt.Errorf("failed to request %s task: %w", taskType, err)
	}

	s.logger.Info("note task requested",
		"task_id", event.ID,
		"note_id", noteID,
		"task_type", taskType)
	return event.ID, nil
}

// getOwnedNote loads a note and hides it behind ErrNoteNotFound when it
// belongs to a different user, so foreign notes are indistinguishable from
// missing ones.
func (s *NoteServiceImpl) getOwnedNote(ctx context.Context, noteStore store.NoteStore, userID, noteID uuid.UUID) (*domain.Note, error) {
	note, err := noteStore.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.UserID != userID {
		s.logger.Debug("cross-user note access denied",
			"note_id", noteID,
			"user_id", userID)
		return nil, store.ErrNoteNotFound
	}
	return note, nil
}
