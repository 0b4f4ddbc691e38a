package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/generation"
	"github.com/companion-app/companion-api/internal/platform/logger"
)

// NoteRepository defines the note persistence operations needed by note
// tasks. It is a narrow subset of store.NoteStore so tasks stay decoupled
// from the full store surface.
type NoteRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error)
	Update(ctx context.Context, note *domain.Note) error
}

// NotePayload is the persisted payload for note processing tasks.
type NotePayload struct {
	NoteID uuid.UUID `json:"note_id"`
	UserID uuid.UUID `json:"user_id"`
}

// NoteEnhancementTask rewrites a note's content through the configured
// generator and stores the result on the note.
type NoteEnhancementTask struct {
	id        uuid.UUID
	payload   NotePayload
	noteRepo  NoteRepository
	generator generation.Generator
	result    json.RawMessage
}

var _ Task = (*NoteEnhancementTask)(nil)
var _ ResultProvider = (*NoteEnhancementTask)(nil)

// NewNoteEnhancementTask creates a task to enhance the given note.
func NewNoteEnhancementTask(
	noteID uuid.UUID,
	userID uuid.UUID,
	noteRepo NoteRepository,
	generator generation.Generator,
) (*NoteEnhancementTask, error) {
	if noteID == uuid.Nil {
		return nil, fmt.Errorf("note ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if noteRepo == nil {
		return nil, fmt.Errorf("note repository cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}

	return &NoteEnhancementTask{
		id:        uuid.New(),
		payload:   NotePayload{NoteID: noteID, UserID: userID},
		noteRepo:  noteRepo,
		generator: generator,
	}, nil
}

// ID returns the task's unique identifier
func (t *NoteEnhancementTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *NoteEnhancementTask) Type() string { return TaskTypeNoteEnhancement }

// UserID returns the owner of the note being processed
func (t *NoteEnhancementTask) UserID() uuid.UUID { return t.payload.UserID }

// Payload returns the serialized task data
func (t *NoteEnhancementTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Status returns the current status of the task
func (t *NoteEnhancementTask) Status() TaskStatus { return TaskStatusPending }

// Result returns the stored outcome of the last successful execution.
func (t *NoteEnhancementTask) Result() json.RawMessage { return t.result }

// Execute loads the note, asks the generator for an enhanced version and
// saves it back. Ownership is re-checked at execution time in case the
// note changed hands or was deleted while the task was queued.
func (t *NoteEnhancementTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, nil).With(
		"task_id", t.id.String(),
		"note_id", t.payload.NoteID.String(),
	)

	note, err := t.noteRepo.GetByID(ctx, t.payload.NoteID)
	if err != nil {
		return fmt.Errorf("failed to load note for enhancement: %w", err)
	}
	if note.UserID != t.payload.UserID {
		return fmt.Errorf("note %s does not belong to user %s", t.payload.NoteID, t.payload.UserID)
	}

	res, err := t.generator.EnhanceNote(ctx, note.Title, note.Content)
	if err != nil {
		return fmt.Errorf("enhancement generation failed: %w", err)
	}

	note.EnhancedContent = res.EnhancedContent
	if err := t.noteRepo.Update(ctx, note); err != nil {
		return fmt.Errorf("failed to save enhanced note: %w", err)
	}

	t.result, err = json.Marshal(map[string]string{
		"note_id": note.ID.String(),
		"model":   res.ModelName,
	})
	if err != nil {
		t.result = nil
	}

	log.Debug("note enhancement stored", "model", res.ModelName)
	return nil
}

// NoteSummaryTask produces a short summary of a note's content and stores
// it on the note.
type NoteSummaryTask struct {
	id        uuid.UUID
	payload   NotePayload
	noteRepo  NoteRepository
	generator generation.Generator
	result    json.RawMessage
}

var _ Task = (*NoteSummaryTask)(nil)
var _ ResultProvider = (*NoteSummaryTask)(nil)

// NewNoteSummaryTask creates a task to summarize the given note.
func NewNoteSummaryTask(
	noteID uuid.UUID,
	userID uuid.UUID,
	noteRepo NoteRepository,
	generator generation.Generator,
) (*NoteSummaryTask, error) {
	if noteID == uuid.Nil {
		return nil, fmt.Errorf("note ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if noteRepo == nil {
		return nil, fmt.Errorf("note repository cannot be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}

	return &NoteSummaryTask{
		id:        uuid.New(),
		payload:   NotePayload{NoteID: noteID, UserID: userID},
		noteRepo:  noteRepo,
		generator: generator,
	}, nil
}

// ID returns the task's unique identifier
func (t *NoteSummaryTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *NoteSummaryTask) Type() string { return TaskTypeNoteSummary }

// UserID returns the owner of the note being processed
func (t *NoteSummaryTask) UserID() uuid.UUID { return t.payload.UserID }

// Payload returns the serialized task data
func (t *NoteSummaryTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Status returns the current status of the task
func (t *NoteSummaryTask) Status() TaskStatus { return TaskStatusPending }

// Result returns the stored outcome of the last successful execution.
func (t *NoteSummaryTask) Result() json.RawMessage { return t.result }

// Execute loads the note, asks the generator for a summary and saves it.
func (t *NoteSummaryTask) Execute(ctx context.Context) error {
	note, err := t.noteRepo.GetByID(ctx, t.payload.NoteID)
	if err != nil {
		return fmt.Errorf("failed to load note for summarization: %w", err)
	}
	if note.UserID != t.payload.UserID {
		return fmt.Errorf("note %s does not belong to user %s", t.payload.NoteID, t.payload.UserID)
	}

	res, err := t.generator.SummarizeNote(ctx, note.Title, note.Content)
	if err != nil {
		return fmt.Errorf("summary generation failed: %w", err)
	}

	note.Summary = res.Summary
	if err := t.noteRepo.Update(ctx, note); err != nil {
		return fmt.Errorf("failed to save note summary: %w", err)
	}

	t.result, err = json.Marshal(map[string]string{
		"note_id": note.ID.String(),
		"model":   res.ModelName,
	})
	if err != nil {
		t.result = nil
	}
	return nil
}

// NewNoteEnhancementFactory returns a Factory that rebuilds enhancement
// tasks from persisted records during recovery.
func NewNoteEnhancementFactory(noteRepo NoteRepository, generator generation.Generator) Factory {
	return func(rec *Record) (Task, error) {
		var payload NotePayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid note enhancement payload: %w", err)
		}
		t, err := NewNoteEnhancementTask(payload.NoteID, payload.UserID, noteRepo, generator)
		if err != nil {
			return nil, err
		}
		t.id = rec.ID
		return t, nil
	}
}

// NewNoteSummaryFactory returns a Factory that rebuilds summary tasks from
// persisted records during recovery.
func NewNoteSummaryFactory(noteRepo NoteRepository, generator generation.Generator) Factory {
	return func(rec *Record) (Task, error) {
		var payload NotePayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid note summary payload: %w", err)
		}
		t, err := NewNoteSummaryTask(payload.NoteID, payload.UserID, noteRepo, generator)
		if err != nil {
			return nil, err
		}
		t.id = rec.ID
		return t, nil
	}
}
