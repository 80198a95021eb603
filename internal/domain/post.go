package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Post
var (
	ErrEmptyPostID       = errors.New("post ID cannot be empty")
	ErrEmptyPostAuthorID = errors.New("post author ID cannot be empty")
	ErrEmptyPostTitle    = errors.New("post title cannot be empty")
)

// Post is a user-owned title/content record. Posts carry no versioning
// and are deleted permanently.
type Post struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPost creates a new Post owned by the given author.
// Returns an error if validation fails.
func NewPost(authorID uuid.UUID, title, content string) (*Post, error) {
	post := &Post{
		ID:        uuid.New(),
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := post.Validate(); err != nil {
		return nil, err
	}

	return post, nil
}

// Validate checks if the Post has valid data.
func (p *Post) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPostID
	}

	if p.AuthorID == uuid.Nil {
		return ErrEmptyPostAuthorID
	}

	if p.Title == "" {
		return ErrEmptyPostTitle
	}

	return nil
}
