package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

// stubAuthService returns canned values for handler tests.
type stubAuthService struct {
	user   *domain.User
	tokens *service.TokenPair
	err    error
}

var _ service.AuthService = (*stubAuthService)(nil)

func (s *stubAuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, *service.TokenPair, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, s.tokens, nil
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.User, *service.TokenPair, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, s.tokens, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens, nil
}

// stubUserService returns canned values for handler tests.
type stubUserService struct {
	user *domain.User
	err  error

	lastUpdate *service.ProfileUpdate
}

var _ service.UserService = (*stubUserService)(nil)

func (s *stubUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, update service.ProfileUpdate) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastUpdate = &update
	return s.user, nil
}

func (s *stubUserService) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	return s.err
}

func (s *stubUserService) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	return s.err
}

// stubNoteService returns canned values for handler tests.
type stubNoteService struct {
	note   *domain.Note
	notes  []*domain.Note
	total  int
	taskID uuid.UUID
	stats  *domain.NoteStats
	err    error

	lastParams *store.NoteListParams
}

var _ service.NoteService = (*stubNoteService)(nil)

func (s *stubNoteService) CreateNote(ctx context.Context, userID uuid.UUID, title, content string, contentType domain.NoteContentType, tags []string) (*domain.Note, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.note, nil
}

func (s *stubNoteService) GetNote(ctx context.Context, userID, noteID uuid.UUID) (*domain.Note, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.note, nil
}

func (s *stubNoteService) UpdateNote(ctx context.Context, userID, noteID uuid.UUID, update service.NoteUpdate) (*domain.Note, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.note, nil
}

func (s *stubNoteService) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	return s.err
}

func (s *stubNoteService) ListNotes(ctx context.Context, userID uuid.UUID, params store.NoteListParams) ([]*domain.Note, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	s.lastParams = &params
	return s.notes, s.total, nil
}

func (s *stubNoteService) GetNoteStats(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func (s *stubNoteService) EnhanceNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return s.taskID, nil
}

func (s *stubNoteService) SummarizeNote(ctx context.Context, userID, noteID uuid.UUID) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return s.taskID, nil
}

// stubTaskService returns canned values for handler tests.
type stubTaskService struct {
	records  []*task.Record
	record   *task.Record
	err      error
	canceled []uuid.UUID
}

var _ service.TaskService = (*stubTaskService)(nil)

func (s *stubTaskService) ListTasks(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubTaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*task.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubTaskService) CancelTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.canceled = append(s.canceled, taskID)
	return nil
}
