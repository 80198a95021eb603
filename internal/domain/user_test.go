package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("User@Example.COM ", "password123", "Someone")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", user.Email, "email is normalized")
	assert.Equal(t, "Someone", user.DisplayName)
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "password123", ErrEmptyEmail},
		{"no at sign", "userexample.com", "password123", ErrInvalidEmail},
		{"no domain dot", "user@examplecom", "password123", ErrInvalidEmail},
		{"trailing at", "user@", "password123", ErrInvalidEmail},
		{"short password", "user@example.com", "short", ErrPasswordTooShort},
		{"empty password", "user@example.com", "", ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.password, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewUser_PasswordTooLong(t *testing.T) {
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewUser("user@example.com", string(long), "")
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestUser_Validate_HashedOnly(t *testing.T) {
	// Users loaded from storage carry only the hash.
	user, err := NewUser("user@example.com", "password123", "")
	require.NoError(t, err)

	user.Password = ""
	user.HashedPassword = "$2a$10$somlongbcrypthashvalue"
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)
}
