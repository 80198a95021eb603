package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of a VIN task.
type TaskStatus string

// Possible task status values. A task moves from pending to completed
// exactly once; no other transitions exist.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID = errors.New("task user ID cannot be empty")
	ErrEmptyTaskVIN    = errors.New("task VIN cannot be empty")
	ErrInvalidStatus   = errors.New("invalid task status")
)

// Task tracks a single VIN-processing job as an incrementally updated
// progress record. ProcessedChars holds one slot per input character;
// slots are empty until the corresponding index has been processed.
// LastProcessedIndex is -1 until the first character is accepted.
type Task struct {
	ID                 uuid.UUID  `json:"id"`
	VIN                string     `json:"vin"`
	Status             TaskStatus `json:"status"`
	Progress           float64    `json:"progress"`
	ProcessedChars     []string   `json:"processed_chars"`
	LastProcessedIndex int        `json:"last_processed_index"`
	Result             string     `json:"result"`
	TimeTaken          float64    `json:"time_taken"` // seconds
	UserID             uuid.UUID  `json:"user_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewTask creates a pending Task for the given VIN, sized to the input:
// one blank slot per character, progress 0, no characters processed.
func NewTask(userID uuid.UUID, vin string) (*Task, error) {
	task := &Task{
		ID:                 uuid.New(),
		VIN:                vin,
		Status:             TaskStatusPending,
		Progress:           0,
		ProcessedChars:     make([]string, len([]rune(vin))),
		LastProcessedIndex: -1,
		UserID:             userID,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.VIN == "" {
		return ErrEmptyTaskVIN
	}

	if t.Status != TaskStatusPending && t.Status != TaskStatusCompleted {
		return ErrInvalidStatus
	}

	return nil
}

// AcceptsIndex reports whether a character update for the given index
// would be accepted: the task must still be pending and the index must
// be exactly the successor of the last processed one.
func (t *Task) AcceptsIndex(charIndex int) bool {
	return t.Status == TaskStatusPending && charIndex == t.LastProcessedIndex+1
}

// ApplyCharUpdate records a processed character. It returns false without
// mutating the task when the index is out of order (duplicate or skipped)
// or the task is no longer pending.
func (t *Task) ApplyCharUpdate(progress float64, charIndex int, char string) bool {
	if !t.AcceptsIndex(charIndex) || charIndex >= len(t.ProcessedChars) {
		return false
	}

	t.ProcessedChars[charIndex] = char
	t.LastProcessedIndex = charIndex
	t.Progress = progress
	t.UpdatedAt = time.Now().UTC()
	return true
}

// Complete marks the task completed with its result and elapsed time.
// Calling it on an already completed task re-applies the same terminal
// values, so the operation is idempotent.
func (t *Task) Complete(result string, timeTaken float64) {
	t.Status = TaskStatusCompleted
	t.Progress = 100
	t.Result = result
	t.TimeTaken = timeTaken
	t.UpdatedAt = time.Now().UTC()
}
