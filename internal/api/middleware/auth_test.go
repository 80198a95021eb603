package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintrack/vintrack/internal/config"
	"github.com/vintrack/vintrack/internal/service/auth"
)

func newTestJWTService(t *testing.T, lifetimeMinutes int) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-key-thats-at-least-32-chars",
		TokenLifetimeMinutes:        lifetimeMinutes,
		RefreshTokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)
	return svc
}

// protectedEcho records whether the wrapped handler ran and with which user.
func protectedEcho(gotUserID *uuid.UUID, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if id, ok := GetUserID(r); ok {
			*gotUserID = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	jwtService := newTestJWTService(t, 60)
	userID := uuid.New()
	token, err := jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, userID, gotUserID)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	jwtService := newTestJWTService(t, 60)

	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	jwtService := newTestJWTService(t, 60)

	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	for _, header := range []string{"Basic abc", "Bearer", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
	assert.False(t, called)
}

func TestAuthenticate_RefreshTokenRejected(t *testing.T) {
	jwtService := newTestJWTService(t, 60)
	refresh, err := jwtService.GenerateRefreshToken(context.Background(), uuid.New())
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	jwtService := newTestJWTService(t, 60)
	token, err := jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	// Mint a token that expired an hour ago, well past the skew allowance,
	// signed with the same secret the service validates against.
	claims := jwt.MapClaims{
		"uid":  uuid.New().String(),
		"type": "access",
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := signed.SignedString([]byte("test-secret-key-thats-at-least-32-chars"))
	require.NoError(t, err)

	jwtService := newTestJWTService(t, 1)
	var gotUserID uuid.UUID
	var called bool
	handler := NewAuthMiddleware(jwtService).Authenticate(protectedEcho(&gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}
