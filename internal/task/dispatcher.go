package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vintrack/vintrack/internal/store"
)

// ErrAlreadyRunning is returned when a dispatch is requested for a task
// that already has a driver in flight.
var ErrAlreadyRunning = errors.New("task is already being processed")

// Dispatcher submits VIN processing drivers to the runner and guarantees
// at most one driver per task ID is in flight at a time. The guard is
// in-process; the store's index precondition covers anything that slips
// past it (for example, two server instances).
type Dispatcher struct {
	runner    *Runner
	store     store.TaskStore
	cache     ProgressCache
	charDelay time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	running map[uuid.UUID]struct{}
}

// NewDispatcher creates a Dispatcher. The cache may be nil.
func NewDispatcher(
	runner *Runner,
	taskStore store.TaskStore,
	cache ProgressCache,
	charDelay time.Duration,
	logger *slog.Logger,
) (*Dispatcher, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if taskStore == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &Dispatcher{
		runner:    runner,
		store:     taskStore,
		cache:     cache,
		charDelay: charDelay,
		logger:    logger.With("component", "task_dispatcher"),
		running:   make(map[uuid.UUID]struct{}),
	}, nil
}

// Dispatch loads the task and submits a driver for it. Returns
// ErrAlreadyRunning if a driver for the same task is in flight, and
// store.ErrTaskNotFound if the task does not exist.
func (d *Dispatcher) Dispatch(ctx context.Context, taskID uuid.UUID) error {
	t, err := d.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if _, ok := d.running[taskID]; ok {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running[taskID] = struct{}{}
	d.mu.Unlock()

	driver, err := NewVinProcessingTask(t, d.store, d.cache, d.charDelay, d.logger)
	if err != nil {
		d.release(taskID)
		return err
	}
	driver.onDone = func() { d.release(taskID) }

	if err := d.runner.Submit(ctx, driver); err != nil {
		d.release(taskID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	d.logger.Debug("task dispatched", "task_id", taskID)
	return nil
}

// Resume re-dispatches every pending task. Called once at startup so work
// interrupted by a shutdown picks up where the store left off.
func (d *Dispatcher) Resume(ctx context.Context) error {
	pending, err := d.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}

	for _, t := range pending {
		if err := d.Dispatch(ctx, t.ID); err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				continue
			}
			return err
		}
	}

	if len(pending) > 0 {
		d.logger.Info("resumed pending tasks", "count", len(pending))
	}
	return nil
}

// IsRunning reports whether a driver for the given task is in flight.
func (d *Dispatcher) IsRunning(taskID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.running[taskID]
	return ok
}

func (d *Dispatcher) release(taskID uuid.UUID) {
	d.mu.Lock()
	delete(d.running, taskID)
	d.mu.Unlock()
}
