package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vintrack/vintrack/internal/domain"
	"github.com/vintrack/vintrack/internal/store"
)

// Common errors
var (
	ErrNilStore  = errors.New("task store cannot be nil")
	ErrNilLogger = errors.New("logger cannot be nil")
	ErrNilTask   = errors.New("task cannot be nil")
)

// ProgressCache receives progress snapshots as a task advances, so reads
// can be served without hitting the database. Implementations must treat
// failures as non-fatal; the store remains authoritative.
type ProgressCache interface {
	Set(ctx context.Context, task *domain.Task) error
}

// VinProcessingTask advances a single VIN task from pending to completed.
// It processes one character per step: wait the pacing delay, then submit
// the uppercased character together with the recomputed percentage. The
// store's index precondition makes replays and races harmless; a rejected
// update is logged, counted, and resolved by re-reading the stored state.
type VinProcessingTask struct {
	task      *domain.Task // local working copy, never shared with the caller
	store     store.TaskStore
	cache     ProgressCache // optional
	charDelay time.Duration
	logger    *slog.Logger
	onDone    func() // set by the Dispatcher to release the run guard
	rejected  atomic.Int64
}

// NewVinProcessingTask creates the driver for one VIN task.
// The cache may be nil; charDelay <= 0 disables pacing (used in tests).
func NewVinProcessingTask(
	t *domain.Task,
	taskStore store.TaskStore,
	cache ProgressCache,
	charDelay time.Duration,
	logger *slog.Logger,
) (*VinProcessingTask, error) {
	if t == nil {
		return nil, ErrNilTask
	}
	if taskStore == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	local := *t
	local.ProcessedChars = append([]string(nil), t.ProcessedChars...)

	return &VinProcessingTask{
		task:      &local,
		store:     taskStore,
		cache:     cache,
		charDelay: charDelay,
		logger:    logger.With("task_type", TaskTypeVinProcessing, "task_id", t.ID),
	}, nil
}

// ID returns the identifier of the VIN task being driven.
func (t *VinProcessingTask) ID() uuid.UUID {
	return t.task.ID
}

// Type returns the task type identifier.
func (t *VinProcessingTask) Type() string {
	return TaskTypeVinProcessing
}

// Rejections returns how many character updates the store rejected as
// stale or duplicate while this driver ran.
func (t *VinProcessingTask) Rejections() int64 {
	return t.rejected.Load()
}

// Execute runs the per-character loop. An update error aborts the loop and
// propagates; the task is left pending with whatever prefix was written.
// Cancellation between characters abandons the task the same way.
func (t *VinProcessingTask) Execute(ctx context.Context) error {
	if t.onDone != nil {
		defer t.onDone()
	}

	if t.task.Status == domain.TaskStatusCompleted {
		t.logger.Debug("task already completed, nothing to do")
		return nil
	}

	chars := []rune(t.task.VIN)
	total := len(chars)
	start := time.Now()

	for i := t.task.LastProcessedIndex + 1; i < total; i++ {
		if err := t.pace(ctx); err != nil {
			return err
		}

		char := strings.ToUpper(string(chars[i]))
		progress := float64(i+1) / float64(total) * 100

		applied, err := t.store.ApplyCharUpdate(ctx, t.task.ID, progress, i, char)
		if err != nil {
			return err
		}

		if !applied {
			t.rejected.Add(1)
			t.logger.Warn("char update rejected as stale or duplicate",
				"char_index", i,
				"rejected_total", t.rejected.Load())

			// Re-read the authoritative state and continue from there.
			fresh, err := t.store.GetByID(ctx, t.task.ID)
			if err != nil {
				return err
			}
			t.task = fresh
			if t.task.Status == domain.TaskStatusCompleted {
				return nil
			}
			i = t.task.LastProcessedIndex
			continue
		}

		t.task.ApplyCharUpdate(progress, i, char)
		t.snapshot(ctx)
	}

	elapsed := time.Since(start).Seconds()
	result := strings.ToUpper(t.task.VIN)

	if err := t.store.Complete(ctx, t.task.ID, result, elapsed); err != nil {
		return err
	}

	t.task.Complete(result, elapsed)
	t.snapshot(ctx)

	t.logger.Info("vin processing finished",
		"chars_processed", total,
		"time_taken", elapsed)
	return nil
}

// pace waits one unit delay, honoring cancellation. The delay simulates
// work; it is not real computation.
func (t *VinProcessingTask) pace(ctx context.Context) error {
	if t.charDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(t.charDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// snapshot publishes the local state to the progress cache, if configured.
func (t *VinProcessingTask) snapshot(ctx context.Context) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(ctx, t.task); err != nil {
		t.logger.Debug("failed to update progress cache", "error", err)
	}
}
