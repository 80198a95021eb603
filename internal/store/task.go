package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vintrack/vintrack/internal/domain"
)

// TaskStore defines the interface for VIN task persistence.
//
// ApplyCharUpdate is the only write that races: two drivers submitting the
// same next index both pass the check at call-construction time, so
// implementations must enforce the index precondition atomically at write
// time. The loser's write is rejected, not applied twice.
type TaskStore interface {
	// Create saves a new task to the store with blank state sized to the VIN.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ApplyCharUpdate records a processed character for the task. The update
	// is accepted only when charIndex == lastProcessedIndex+1 and the task is
	// still pending, checked atomically against the stored row. It returns
	// (true, nil) when applied and (false, nil) when the update was stale or
	// duplicate, so callers can tell a rejection apart from success.
	// Returns ErrTaskNotFound if the task does not exist.
	ApplyCharUpdate(ctx context.Context, id uuid.UUID, progress float64, charIndex int, char string) (bool, error)

	// Complete marks the task completed with its result and elapsed seconds,
	// setting progress to 100. Completing an already completed task re-applies
	// the same terminal values (idempotent). No check is made that every
	// character was processed.
	Complete(ctx context.Context, id uuid.UUID, result string, timeTaken float64) error

	// List returns the tasks owned by the given user in insertion order.
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// ListPending returns all tasks still in pending status, oldest first.
	// Used at startup to resume interrupted tasks.
	ListPending(ctx context.Context) ([]*domain.Task, error)

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
