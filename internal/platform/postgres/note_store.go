package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/domain"
	"github.com/companion-app/companion-api/internal/platform/logger"
	"github.com/companion-app/companion-api/internal/store"
)

// PostgresNoteStore implements the store.NoteStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNoteStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNoteStore creates a new PostgreSQL implementation of the
// NoteStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresNoteStore(db store.DBTX, logger *slog.Logger) *PostgresNoteStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "note_store")),
	}
}

// Ensure PostgresNoteStore implements store.NoteStore interface
var _ store.NoteStore = (*PostgresNoteStore)(nil)

// Create implements store.NoteStore.Create
// It saves a new note to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the owning user does not exist.
func (s *PostgresNoteStore) Create(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during create",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal note tags: %w", err)
	}

	query := `
		INSERT INTO notes (id, user_id, title, content, content_type, tags,
			word_count, enhanced_content, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		note.ID,
		note.UserID,
		note.Title,
		note.Content,
		note.ContentType,
		tags,
		note.WordCount,
		note.EnhancedContent,
		note.Summary,
		note.CreatedAt,
		note.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during note creation",
				slog.String("note_id", note.ID.String()),
				slog.String("user_id", note.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, note.UserID)
		}

		log.Error("failed to create note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()),
			slog.String("user_id", note.UserID.String()))
		return MapError(err)
	}

	log.Info("note created successfully",
		slog.String("note_id", note.ID.String()),
		slog.String("user_id", note.UserID.String()))
	return nil
}

// GetByID implements store.NoteStore.GetByID
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Note, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving note by ID", slog.String("note_id", id.String()))

	query := `
		SELECT id, user_id, title, content, content_type, tags,
			word_count, enhanced_content, summary, created_at, updated_at
		FROM notes
		WHERE id = $1
	`

	note, err := scanNote(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("note not found", slog.String("note_id", id.String()))
			return nil, store.ErrNoteNotFound
		}
		log.Error("failed to get note by ID",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return nil, err
	}

	return note, nil
}

// Update implements store.NoteStore.Update
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) Update(ctx context.Context, note *domain.Note) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := note.Validate(); err != nil {
		log.Warn("note validation failed during update",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal note tags: %w", err)
	}

	note.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE notes
		SET title = $1, content = $2, content_type = $3, tags = $4,
			word_count = $5, enhanced_content = $6, summary = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		note.Title,
		note.Content,
		note.ContentType,
		tags,
		note.WordCount,
		note.EnhancedContent,
		note.Summary,
		note.UpdatedAt,
		note.ID,
	)

	if err != nil {
		log.Error("failed to update note",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("note_id", note.ID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("note not found for update",
			slog.String("note_id", note.ID.String()))
		return store.ErrNoteNotFound
	}

	log.Info("note updated successfully",
		slog.String("note_id", note.ID.String()))
	return nil
}

// Delete implements store.NoteStore.Delete
// Returns store.ErrNoteNotFound if the note does not exist.
func (s *PostgresNoteStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM notes WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete note",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("note_id", id.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("note not found for deletion",
			slog.String("note_id", id.String()))
		return store.ErrNoteNotFound
	}

	log.Info("note deleted",
		slog.String("note_id", id.String()))
	return nil
}

// ListByUser implements store.NoteStore.ListByUser
// It returns a page of the user's notes plus the total number of notes
// matching the filter, so handlers can compute page counts.
func (s *PostgresNoteStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	params store.NoteListParams,
) ([]*domain.Note, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	params.Normalize()

	where, args, err := buildNoteFilter(userID, params)
	if err != nil {
		return nil, 0, err
	}

	log.Debug("listing notes",
		slog.String("user_id", userID.String()),
		slog.Int("page", params.Page),
		slog.Int("page_size", params.PageSize))

	countQuery := "SELECT COUNT(*) FROM notes WHERE " + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count notes",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, err
	}

	direction := "ASC"
	if params.SortDescending {
		direction = "DESC"
	}

	// SortBy is constrained to known columns by Normalize.
	listQuery := fmt.Sprintf(`
		SELECT id, user_id, title, content, content_type, tags,
			word_count, enhanced_content, summary, created_at, updated_at
		FROM notes
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, params.SortBy, direction, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		log.Error("failed to list notes",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	notes := make([]*domain.Note, 0, params.PageSize)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			log.Error("failed to scan note row",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, 0, err
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	log.Debug("notes listed",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(notes)),
		slog.Int("total", total))
	return notes, total, nil
}

// GetStatsByUser implements store.NoteStore.GetStatsByUser
// It aggregates entirely in SQL so stats stay cheap for large note sets.
func (s *PostgresNoteStore) GetStatsByUser(ctx context.Context, userID uuid.UUID) (*domain.NoteStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	stats := &domain.NoteStats{
		ContentTypes: make(map[string]int),
		UniqueTags:   []string{},
	}

	totalsQuery := `
		SELECT COUNT(*), COALESCE(SUM(word_count), 0)
		FROM notes
		WHERE user_id = $1
	`
	if err := s.db.QueryRowContext(ctx, totalsQuery, userID).Scan(&stats.TotalNotes, &stats.TotalWords); err != nil {
		log.Error("failed to aggregate note totals",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	typesQuery := `
		SELECT content_type, COUNT(*)
		FROM notes
		WHERE user_id = $1
		GROUP BY content_type
	`
	rows, err := s.db.QueryContext(ctx, typesQuery, userID)
	if err != nil {
		log.Error("failed to aggregate note content types",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var contentType string
		var count int
		if err := rows.Scan(&contentType, &count); err != nil {
			return nil, err
		}
		stats.ContentTypes[contentType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagsQuery := `
		SELECT DISTINCT tag
		FROM notes, jsonb_array_elements_text(tags) AS tag
		WHERE user_id = $1
		ORDER BY tag
	`
	tagRows, err := s.db.QueryContext(ctx, tagsQuery, userID)
	if err != nil {
		log.Error("failed to collect distinct note tags",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() { _ = tagRows.Close() }()

	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return nil, err
		}
		stats.UniqueTags = append(stats.UniqueTags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	stats.TagsCount = len(stats.UniqueTags)

	log.Debug("note stats aggregated",
		slog.String("user_id", userID.String()),
		slog.Int("total_notes", stats.TotalNotes))
	return stats, nil
}

// WithTx implements store.NoteStore.WithTx
func (s *PostgresNoteStore) WithTx(tx *sql.Tx) store.NoteStore {
	return &PostgresNoteStore{
		db:     tx,
		logger: s.logger,
	}
}

// buildNoteFilter renders the WHERE clause shared by the count and list
// queries. Placeholders are numbered from $1.
func buildNoteFilter(userID uuid.UUID, params store.NoteListParams) (string, []interface{}, error) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{userID}

	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", n, n))
	}

	if len(params.Tags) > 0 {
		tagsJSON, err := json.Marshal(params.Tags)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal tag filter: %w", err)
		}
		args = append(args, tagsJSON)
		clauses = append(clauses, fmt.Sprintf("tags @> $%d", len(args)))
	}

	if params.ContentType != "" {
		args = append(args, params.ContentType)
		clauses = append(clauses, fmt.Sprintf("content_type = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanNote.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNote scans a single note row, decoding the jsonb tags column.
func scanNote(row rowScanner) (*domain.Note, error) {
	var note domain.Note
	var tags []byte
	var contentType string

	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&contentType,
		&tags,
		&note.WordCount,
		&note.EnhancedContent,
		&note.Summary,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	note.ContentType = domain.NoteContentType(contentType)

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &note.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note tags: %w", err)
		}
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	return &note, nil
}
