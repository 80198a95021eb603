package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vintrack/vintrack/internal/api/shared"
	"github.com/vintrack/vintrack/internal/config"
	"github.com/vintrack/vintrack/internal/domain"
	"github.com/vintrack/vintrack/internal/service/auth"
	"github.com/vintrack/vintrack/internal/store"
)

// In-memory store fakes for handler tests.

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.DisplayName = displayName
	return nil
}

func (s *memUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type memPostStore struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*domain.Post
	seq   int
	order map[uuid.UUID]int
}

func newMemPostStore() *memPostStore {
	return &memPostStore{
		posts: make(map[uuid.UUID]*domain.Post),
		order: make(map[uuid.UUID]int),
	}
}

func (s *memPostStore) Create(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *post
	s.posts[post.ID] = &cp
	s.order[post.ID] = s.seq
	s.seq++
	return nil
}

func (s *memPostStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPostStore) List(_ context.Context, authorID *uuid.UUID) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Post
	for _, p := range s.posts {
		if authorID != nil && p.AuthorID != *authorID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *memPostStore) Update(_ context.Context, id uuid.UUID, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return store.ErrPostNotFound
	}
	p.Title = title
	p.Content = content
	return nil
}

func (s *memPostStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	return nil
}

func (s *memPostStore) WithTx(_ *sql.Tx) store.PostStore { return s }

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
	seq   int
	order map[uuid.UUID]int
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
		order: make(map[uuid.UUID]int),
	}
}

func (s *memTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	cp.ProcessedChars = append([]string(nil), task.ProcessedChars...)
	s.tasks[task.ID] = &cp
	s.order[task.ID] = s.seq
	s.seq++
	return nil
}

func (s *memTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	cp.ProcessedChars = append([]string(nil), t.ProcessedChars...)
	return &cp, nil
}

func (s *memTaskStore) ApplyCharUpdate(_ context.Context, id uuid.UUID, progress float64, charIndex int, char string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false, store.ErrTaskNotFound
	}
	return t.ApplyCharUpdate(progress, charIndex, char), nil
}

func (s *memTaskStore) Complete(_ context.Context, id uuid.UUID, result string, timeTaken float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Complete(result, timeTaken)
	return nil
}

func (s *memTaskStore) List(_ context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			cp := *t
			cp.ProcessedChars = append([]string(nil), t.ProcessedChars...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *memTaskStore) ListPending(_ context.Context) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.Status == domain.TaskStatusPending {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// newTestJWTService creates a real JWT service with a fixed test secret.
func newTestJWTService(t *testing.T) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-key-thats-at-least-32-chars",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 7 * 24 * 60,
	})
	require.NoError(t, err)
	return svc
}

// newJSONRequest builds a request with a JSON body.
func newJSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser stamps the request context with an authenticated user ID, the way
// the auth middleware does.
func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

// withPathParam attaches a chi route parameter to the request context.
func withPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody unmarshals a recorded response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
