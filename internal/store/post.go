package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/vintrack/vintrack/internal/domain"
)

// PostStore defines the interface for post data persistence.
type PostStore interface {
	// Create saves a new post to the store.
	// Returns validation errors from the domain Post if data is invalid.
	Create(ctx context.Context, post *domain.Post) error

	// GetByID retrieves a post by its unique ID.
	// Returns ErrPostNotFound if the post does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)

	// List returns posts in insertion order. When authorID is non-nil,
	// only that author's posts are returned.
	List(ctx context.Context, authorID *uuid.UUID) ([]*domain.Post, error)

	// Update modifies an existing post's title and content.
	// Returns ErrPostNotFound if the post does not exist.
	Update(ctx context.Context, id uuid.UUID, title, content string) error

	// Delete removes a post from the store by its ID.
	// Deleting an absent post is a no-op, not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new PostStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PostStore
}
