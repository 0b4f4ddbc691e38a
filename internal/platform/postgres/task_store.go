package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/companion-app/companion-api/internal/platform/logger"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements task.TaskStore interface
var _ task.TaskStore = (*PostgresTaskStore)(nil)

// SaveTask implements task.TaskStore.SaveTask
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, user_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
	`

	// uuid.Nil marks system tasks; store NULL so the users FK stays intact.
	var userID interface{}
	if t.UserID() != uuid.Nil {
		userID = t.UserID()
	}

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		userID,
		t.Payload(),
		task.TaskStatusPending,
		now,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task save",
				slog.String("task_id", t.ID().String()),
				slog.String("user_id", t.UserID().String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, t.UserID())
		}

		log.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()))
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus
// It maintains the started_at and completed_at timestamps as the task moves
// through its lifecycle.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()

	var query string
	switch status {
	case task.TaskStatusProcessing:
		query = `
			UPDATE tasks
			SET status = $1, error_message = $2, started_at = $3, updated_at = $3
			WHERE id = $4
		`
	case task.TaskStatusCompleted, task.TaskStatusFailed, task.TaskStatusCanceled:
		query = `
			UPDATE tasks
			SET status = $1, error_message = $2, completed_at = $3, updated_at = $3
			WHERE id = $4
		`
	default:
		query = `
			UPDATE tasks
			SET status = $1, error_message = $2, updated_at = $3
			WHERE id = $4
		`
	}

	result, err := s.db.ExecContext(ctx, query, status, errorMsg, now, taskID)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return fmt.Errorf("failed to update task status: %w", err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found for status update",
			slog.String("task_id", taskID.String()))
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	return nil
}

// SetTaskResult implements task.TaskStore.SetTaskResult
func (s *PostgresTaskStore) SetTaskResult(ctx context.Context, taskID uuid.UUID, result json.RawMessage) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET result = $1, updated_at = $2
		WHERE id = $3
	`

	res, err := s.db.ExecContext(ctx, query, result, time.Now().UTC(), taskID)
	if err != nil {
		log.Error("failed to set task result",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return fmt.Errorf("failed to set task result: %w", err)
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	return nil
}

// IncrementAttempts implements task.TaskStore.IncrementAttempts
func (s *PostgresTaskStore) IncrementAttempts(ctx context.Context, taskID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET attempts = attempts + 1, updated_at = $1
		WHERE id = $2
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query, time.Now().UTC(), taskID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrTaskNotFound
		}
		log.Error("failed to increment task attempts",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return 0, fmt.Errorf("failed to increment task attempts: %w", err)
	}

	return attempts, nil
}

// GetByID implements task.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the record does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, taskID uuid.UUID) (*task.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := taskSelectColumns + ` WHERE id = $1`

	rec, err := scanTaskRecord(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", taskID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, err
	}

	return rec, nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]*task.Record, error) {
	query := taskSelectColumns + ` WHERE status = $1 ORDER BY created_at`
	return s.queryRecords(ctx, query, task.TaskStatusPending)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks
// If olderThan is non-zero, only records that entered processing before the
// cutoff are returned.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*task.Record, error) {
	if olderThan == 0 {
		query := taskSelectColumns + ` WHERE status = $1 ORDER BY created_at`
		return s.queryRecords(ctx, query, task.TaskStatusProcessing)
	}

	query := taskSelectColumns + ` WHERE status = $1 AND started_at < $2 ORDER BY created_at`
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queryRecords(ctx, query, task.TaskStatusProcessing, cutoff)
}

// ListByUser implements task.TaskStore.ListByUser
func (s *PostgresTaskStore) ListByUser(ctx context.Context, userID uuid.UUID, status task.TaskStatus, limit int) ([]*task.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	if status != "" {
		query := taskSelectColumns + `
			WHERE user_id = $1 AND status = $2
			ORDER BY created_at DESC
			LIMIT $3`
		return s.queryRecords(ctx, query, userID, status, limit)
	}

	query := taskSelectColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return s.queryRecords(ctx, query, userID, limit)
}

// DeleteFinishedBefore implements task.TaskStore.DeleteFinishedBefore
func (s *PostgresTaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM tasks
		WHERE status IN ($1, $2, $3) AND completed_at < $4
	`

	result, err := s.db.ExecContext(ctx, query,
		task.TaskStatusCompleted,
		task.TaskStatusFailed,
		task.TaskStatusCanceled,
		cutoff,
	)
	if err != nil {
		log.Error("failed to delete finished tasks",
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to delete finished tasks: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// WithTx implements task.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

const taskSelectColumns = `
	SELECT id, type, user_id, payload, status, attempts, result,
		error_message, created_at, started_at, completed_at, updated_at
	FROM tasks`

// queryRecords runs a record query and scans all rows.
func (s *PostgresTaskStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*task.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task records",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query task records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*task.Record
	for rows.Next() {
		rec, err := scanTaskRecord(rows)
		if err != nil {
			log.Error("failed to scan task record",
				slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanTaskRecord scans a single task record row, handling nullable columns.
func scanTaskRecord(row rowScanner) (*task.Record, error) {
	var rec task.Record
	var userID uuid.NullUUID
	var result []byte
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&userID,
		&rec.Payload,
		&rec.Status,
		&rec.Attempts,
		&result,
		&errorMessage,
		&rec.CreatedAt,
		&startedAt,
		&completedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		rec.UserID = userID.UUID
	}
	if len(result) > 0 {
		rec.Result = json.RawMessage(result)
	}
	if errorMessage.Valid {
		rec.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}

	return &rec, nil
}
