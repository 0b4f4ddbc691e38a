package service_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/events"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noopDB returns a *sql.DB whose transactions begin, commit, and roll back
// without a server. The fake stores ignore the *sql.Tx handle, so service
// transaction plumbing can run in unit tests.
func noopDB() *sql.DB {
	return sql.OpenDB(noopConnector{})
}

type noopConnector struct{}

func (noopConnector) Connect(context.Context) (driver.Conn, error) { return noopConn{}, nil }
func (noopConnector) Driver() driver.Driver                        { return noopDriver{} }

type noopDriver struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (noopConn) Close() error                        { return nil }
func (noopConn) Begin() (driver.Tx, error)           { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// fakeUserStore is an in-memory store.UserStore. It marks hashes with a
// "hashed:" prefix instead of running bcrypt.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*fakeUserStore)(nil)

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func fakeHash(password string) string { return "hashed:" + password }

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	if err := user.Validate(); err != nil {
		return err
	}
	user.HashedPassword = fakeHash(user.Password)
	user.Password = ""
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	if user.Password != "" {
		user.HashedPassword = fakeHash(user.Password)
		user.Password = ""
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeUserStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.IsActive = false
	return nil
}

func (s *fakeUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

// fakeVerifier matches fakeUserStore's hashing scheme.
type fakeVerifier struct{}

var _ auth.PasswordVerifier = fakeVerifier{}

func (fakeVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword != fakeHash(password) {
		return errors.New("password mismatch")
	}
	return nil
}

// fakeJWTService issues tokens encoding the user ID and token type.
type fakeJWTService struct {
	failGenerate bool
}

var _ auth.JWTService = (*fakeJWTService)(nil)

func (s *fakeJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.failGenerate {
		return "", errors.New("signing failure")
	}
	return "access:" + userID.String(), nil
}

func (s *fakeJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.failGenerate {
		return "", errors.New("signing failure")
	}
	return "refresh:" + userID.String(), nil
}

func (s *fakeJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return s.validate(tokenString, "access:")
}

func (s *fakeJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return s.validate(tokenString, "refresh:")
}

func (s *fakeJWTService) validate(tokenString, prefix string) (*auth.Claims, error) {
	if len(tokenString) <= len(prefix) || tokenString[:len(prefix)] != prefix {
		return nil, auth.ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(tokenString[len(prefix):])
	if err != nil {
		return nil, auth.ErrInvalidRefreshToken
	}
	return &auth.Claims{UserID: userID}, nil
}

// fakeNoteStore is an in-memory store.NoteStore.
type fakeNoteStore struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*domain.Note
}

var _ store.NoteStore = (*fakeNoteStore)(nil)

func newFakeNoteStore() *fakeNoteStore {
	return &fakeNoteStore{notes: make(map[uuid.UUID]*domain.Note)}
}

func (s *fakeNoteStore) Create(ctx context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := note.Validate(); err != nil {
		return err
	}
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *fakeNoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	cp := *note
	return &cp, nil
}

func (s *fakeNoteStore) Update(ctx context.Context, note *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[note.ID]; !ok {
		return store.ErrNoteNotFound
	}
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *fakeNoteStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return store.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

func (s *fakeNoteStore) ListByUser(ctx context.Context, userID uuid.UUID, params store.NoteListParams) ([]*domain.Note, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Note
	for _, note := range s.notes {
		if note.UserID == userID {
			cp := *note
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (s *fakeNoteStore) GetStatsByUser(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &domain.NoteStats{
		ContentTypes: make(map[string]int),
		UniqueTags:   []string{},
	}
	seen := make(map[string]bool)
	for _, note := range s.notes {
		if note.UserID != userID {
			continue
		}
		stats.TotalNotes++
		stats.TotalWords += note.WordCount
		stats.ContentTypes[string(note.ContentType)]++
		for _, tag := range note.Tags {
			if !seen[tag] {
				seen[tag] = true
				stats.UniqueTags = append(stats.UniqueTags, tag)
			}
		}
	}
	sort.Strings(stats.UniqueTags)
	stats.TagsCount = len(stats.UniqueTags)
	return stats, nil
}

func (s *fakeNoteStore) WithTx(tx *sql.Tx) store.NoteStore { return s }

// captureEmitter records emitted events.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

var _ events.EventEmitter = (*captureEmitter)(nil)

func (e *captureEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *captureEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events
}

// fakeTaskStore is an in-memory task.TaskStore for task service tests.
type fakeTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*task.Record
}

var _ task.TaskStore = (*fakeTaskStore)(nil)

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{records: make(map[uuid.UUID]*task.Record)}
}

func (s *fakeTaskStore) put(rec *task.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

func (s *fakeTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	s.put(&task.Record{
		ID:      t.ID(),
		Type:    t.Type(),
		UserID:  t.UserID(),
		Payload: t.Payload(),
		Status:  task.TaskStatusPending,
	})
	return nil
}

func (s *fakeTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	return nil
}

func (s *fakeTaskStore) SetTaskResult(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	rec.Result = result
	return nil
}

func (s *fakeTaskStore) IncrementAttempts(ctx context.Context, taskID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return 0, store.ErrTaskNotFound
	}
	rec.Attempts++
	return rec.Attempts, nil
}

func (s *fakeTaskStore) GetByID(ctx context.Context, taskID uuid.UUID) (*task.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeTaskStore) GetPendingTasks(ctx context.Context) ([]*task.Record, error) {
	return nil, nil
}

func (s *fakeTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*task.Record, error) {
	return nil, nil
}

func (s *fakeTaskStore) ListByUser(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task.Record
	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeTaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, rec := range s.records {
		if rec.Status.IsTerminal() && rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) task.TaskStore { return s }

// fakeCanceler flips records to canceled, standing in for the runner.
type fakeCanceler struct {
	store *fakeTaskStore
	err   error
}

func (c *fakeCanceler) Cancel(ctx context.Context, taskID uuid.UUID) error {
	if c.err != nil {
		return c.err
	}
	return c.store.UpdateTaskStatus(ctx, taskID, task.TaskStatusCanceled, "")
}
