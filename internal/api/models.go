package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=8,max=72"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	DisplayName  string    `json:"display_name,omitempty"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    string    `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// UpdateMeRequest defines the payload for updating the caller's profile.
type UpdateMeRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
}

// CreatePostRequest defines the payload for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title"   validate:"required,max=500"`
	Content string `json:"content"`
}

// UpdatePostRequest defines the payload for updating a post.
type UpdatePostRequest struct {
	Title   string `json:"title"   validate:"required,max=500"`
	Content string `json:"content"`
}

// PostResponse is the wire representation of a post.
type PostResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTaskRequest defines the payload for creating a VIN processing task.
type CreateTaskRequest struct {
	VIN string `json:"vin" validate:"required,min=1,max=64"`
}

// TaskResponse is the wire representation of a task's progress view.
type TaskResponse struct {
	ID                 uuid.UUID `json:"id"`
	VIN                string    `json:"vin"`
	Status             string    `json:"status"`
	Progress           float64   `json:"progress"`
	ProcessedChars     []string  `json:"processed_chars"`
	LastProcessedIndex int       `json:"last_processed_index"`
	Result             string    `json:"result,omitempty"`
	TimeTaken          float64   `json:"time_taken,omitempty"`
	UserID             uuid.UUID `json:"user_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
