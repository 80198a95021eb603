package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vintrack/vintrack/internal/domain"
	"github.com/vintrack/vintrack/internal/platform/logger"
	"github.com/vintrack/vintrack/internal/store"
	"github.com/vintrack/vintrack/internal/task"
)

// ProgressReader serves task progress snapshots from a cache ahead of the
// database. Implementations signal a miss with an error; any error falls
// back to the store.
type ProgressReader interface {
	Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
}

// TaskHandler handles VIN task API requests.
type TaskHandler struct {
	taskStore  store.TaskStore
	dispatcher *task.Dispatcher
	progress   ProgressReader // optional
	validator  *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
// progress may be nil, in which case all reads hit the store.
func NewTaskHandler(
	taskStore store.TaskStore,
	dispatcher *task.Dispatcher,
	progress ProgressReader,
) *TaskHandler {
	return &TaskHandler{
		taskStore:  taskStore,
		dispatcher: dispatcher,
		progress:   progress,
		validator:  validator.New(),
	}
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:                 t.ID,
		VIN:                t.VIN,
		Status:             string(t.Status),
		Progress:           t.Progress,
		ProcessedChars:     t.ProcessedChars,
		LastProcessedIndex: t.LastProcessedIndex,
		Result:             t.Result,
		TimeTaken:          t.TimeTaken,
		UserID:             t.UserID,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// CreateTask handles POST /api/tasks: it persists a blank task record for
// the VIN and dispatches processing in the background. The response
// returns immediately with the pending task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	taskEntity, err := domain.NewTask(userID, req.VIN)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("vin", "cannot be empty", domain.ErrValidation), "")
		return
	}

	if err := h.taskStore.Create(r.Context(), taskEntity); err != nil {
		log.Error("failed to create task", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), taskEntity.ID); err != nil {
		// The record exists; processing resumes on the next startup sweep
		// if dispatch failed transiently.
		log.Error("failed to dispatch task", "error", err, "task_id", taskEntity.ID)
		HandleAPIError(w, r, err, "")
		return
	}

	RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(taskEntity))
}

// GetTask handles GET /api/tasks/{id}, returning the task's progress view.
// Reads prefer the progress cache and fall back to the store.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	taskEntity := h.readTask(r.Context(), taskID)
	if taskEntity == nil {
		var err error
		taskEntity, err = h.taskStore.GetByID(r.Context(), taskID)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
	}

	if taskEntity.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this task")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToResponse(taskEntity))
}

// ListTasks handles GET /api/tasks, returning the caller's tasks in
// insertion order.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	tasks, err := h.taskStore.List(r.Context(), userID)
	if err != nil {
		log.Error("failed to list tasks", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, taskToResponse(t))
	}
	RespondWithJSON(w, r, http.StatusOK, responses)
}

// DeleteTask handles DELETE /api/tasks/{id}. Only the owner may delete.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	taskEntity, err := h.taskStore.GetByID(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if taskEntity.UserID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this task")
		return
	}

	if err := h.taskStore.Delete(r.Context(), taskID); err != nil {
		log.Error("failed to delete task", "error", err, "task_id", taskID)
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readTask returns a cached snapshot or nil on any miss or error.
func (h *TaskHandler) readTask(ctx context.Context, taskID uuid.UUID) *domain.Task {
	if h.progress == nil {
		return nil
	}
	cached, err := h.progress.Get(ctx, taskID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.FromContextOrDefault(ctx, nil).Debug("progress cache miss",
				"task_id", taskID, "error", err)
		}
		return nil
	}
	return cached
}
