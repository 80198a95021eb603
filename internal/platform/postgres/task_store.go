package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vintrack/vintrack/internal/domain"
	"github.com/vintrack/vintrack/internal/platform/logger"
	"github.com/vintrack/vintrack/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
//
// The processed character slots are stored as a JSONB array so that a single
// UPDATE can set one slot and advance the index atomically under the
// last_processed_index precondition.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
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

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `
	id, vin, status, progress, processed_chars, last_processed_index,
	result, time_taken, user_id, created_at, updated_at
`

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if the owner doesn't exist (foreign key violation).
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	chars, err := json.Marshal(task.ProcessedChars)
	if err != nil {
		return fmt.Errorf("failed to encode processed chars: %w", err)
	}

	query := `
		INSERT INTO tasks (id, vin, status, progress, processed_chars,
			last_processed_index, result, time_taken, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.VIN,
		task.Status,
		task.Progress,
		chars,
		task.LastProcessedIndex,
		task.Result,
		task.TimeTaken,
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, task.UserID)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()),
		slog.Int("vin_length", len(task.VIN)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// ApplyCharUpdate implements store.TaskStore.ApplyCharUpdate
//
// The index precondition is part of the UPDATE's WHERE clause, so the
// read-modify-write is atomic at the row level: when two writers race for
// the same next index, exactly one UPDATE matches and the loser is
// rejected with (false, nil).
func (s *PostgresTaskStore) ApplyCharUpdate(
	ctx context.Context,
	id uuid.UUID,
	progress float64,
	charIndex int,
	char string,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// jsonb_set paths are 0-based for arrays, matching charIndex directly.
	query := `
		UPDATE tasks
		SET processed_chars = jsonb_set(processed_chars, ARRAY[$2::text], to_jsonb($3::text)),
		    last_processed_index = $4,
		    progress = $5,
		    updated_at = $6
		WHERE id = $1
		  AND status = $7
		  AND last_processed_index = $4 - 1
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		id,
		strconv.Itoa(charIndex),
		char,
		charIndex,
		progress,
		time.Now().UTC(),
		domain.TaskStatusPending,
	)
	if err != nil {
		log.Error("failed to apply char update",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()),
			slog.Int("char_index", charIndex))
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 1 {
		return true, nil
	}

	// No row matched: either the task is gone or the index precondition
	// failed. Distinguish the two so a rejection is never mistaken for a
	// missing task.
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	if !exists {
		return false, store.ErrTaskNotFound
	}

	return false, nil
}

// Complete implements store.TaskStore.Complete
// The update re-applies the same terminal values on a repeat call, so the
// operation is idempotent. Returns store.ErrTaskNotFound if the task does
// not exist.
func (s *PostgresTaskStore) Complete(
	ctx context.Context,
	id uuid.UUID,
	result string,
	timeTaken float64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $2, progress = 100, result = $3, time_taken = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(
		ctx,
		query,
		id,
		domain.TaskStatusCompleted,
		result,
		timeTaken,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to complete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	log.Info("task completed",
		slog.String("task_id", id.String()),
		slog.Float64("time_taken", timeTaken))
	return nil
}

// List implements store.TaskStore.List
// Tasks are returned in insertion order.
func (s *PostgresTaskStore) List(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	return s.queryTasks(ctx, query, userID)
}

// ListPending implements store.TaskStore.ListPending
func (s *PostgresTaskStore) ListPending(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY created_at ASC, id ASC`
	return s.queryTasks(ctx, query, domain.TaskStatusPending)
}

// Delete implements store.TaskStore.Delete
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status string
	var chars []byte

	err := row.Scan(
		&task.ID,
		&task.VIN,
		&status,
		&task.Progress,
		&chars,
		&task.LastProcessedIndex,
		&task.Result,
		&task.TimeTaken,
		&task.UserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if err := json.Unmarshal(chars, &task.ProcessedChars); err != nil {
		return nil, fmt.Errorf("failed to decode processed chars: %w", err)
	}

	return &task, nil
}
