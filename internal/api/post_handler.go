package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vintrack/vintrack/internal/domain"
	"github.com/vintrack/vintrack/internal/platform/logger"
	"github.com/vintrack/vintrack/internal/store"
)

// PostHandler handles post-related API requests.
type PostHandler struct {
	postStore store.PostStore
	validator *validator.Validate
}

// NewPostHandler creates a new PostHandler with the given dependencies.
func NewPostHandler(postStore store.PostStore) *PostHandler {
	return &PostHandler{
		postStore: postStore,
		validator: validator.New(),
	}
}

func postToResponse(p *domain.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CreatePost handles POST /api/posts.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreatePostRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	post, err := domain.NewPost(userID, req.Title, req.Content)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("title", "cannot be empty", domain.ErrValidation), "")
		return
	}

	if err := h.postStore.Create(r.Context(), post); err != nil {
		log.Error("failed to create post", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to create post")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, postToResponse(post))
}

// ListPosts handles GET /api/posts. The optional "mine" query parameter
// restricts the listing to the caller's posts.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var authorFilter *uuid.UUID
	if r.URL.Query().Get("mine") == "true" {
		authorFilter = &userID
	}

	posts, err := h.postStore.List(r.Context(), authorFilter)
	if err != nil {
		log.Error("failed to list posts", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to list posts")
		return
	}

	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, postToResponse(p))
	}
	RespondWithJSON(w, r, http.StatusOK, responses)
}

// UpdatePost handles PUT /api/posts/{id}. Only the owner may update.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, postID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	post, err := h.postStore.GetByID(r.Context(), postID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if post.AuthorID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this post")
		return
	}

	if err := h.postStore.Update(r.Context(), postID, req.Title, req.Content); err != nil {
		log.Error("failed to update post", "error", err, "post_id", postID)
		HandleAPIError(w, r, err, "")
		return
	}

	post.Title = req.Title
	post.Content = req.Content
	RespondWithJSON(w, r, http.StatusOK, postToResponse(post))
}

// DeletePost handles DELETE /api/posts/{id}. Deleting an absent post is a
// no-op so repeated deletes succeed. Ownership is checked only when the
// post still exists.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), nil)

	userID, postID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	post, err := h.postStore.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	if post.AuthorID != userID {
		HandleAPIError(w, r, domain.ErrUnauthorized, "You do not own this post")
		return
	}

	if err := h.postStore.Delete(r.Context(), postID); err != nil {
		log.Error("failed to delete post", "error", err, "post_id", postID)
		HandleAPIError(w, r, err, "Failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
