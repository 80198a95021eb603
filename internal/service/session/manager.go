// Package session manages an authenticated session on behalf of an API
// client: it holds the current token pair, refreshes the access token
// shortly before it expires, and drops the session when refresh fails or
// the user logs out. Register and login are retried with a linear backoff
// because transient failures during sign-in are common enough to absorb.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoSession is returned when an operation requires an active session
// and none exists.
var ErrNoSession = errors.New("no active session")

// TokenPair is the credential set minted by the auth endpoints.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Identity describes the authenticated user behind a session.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// AuthClient abstracts the auth endpoints the manager drives.
type AuthClient interface {
	Register(ctx context.Context, email, password, displayName string) (*TokenPair, *Identity, error)
	Login(ctx context.Context, email, password string) (*TokenPair, *Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Manager owns one session at a time. All methods are safe for
// concurrent use.
type Manager struct {
	client      AuthClient
	logger      *slog.Logger
	maxAttempts int
	backoffStep time.Duration
	refreshLead time.Duration
	timeFunc    func() time.Time

	mu           sync.Mutex
	tokens       *TokenPair
	identity     *Identity
	refreshTimer *time.Timer
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackoffStep sets the base delay between retry attempts. The delay
// grows linearly: step, 2*step, and so on.
func WithBackoffStep(step time.Duration) Option {
	return func(m *Manager) { m.backoffStep = step }
}

// WithRefreshLead sets how long before access token expiry the manager
// refreshes.
func WithRefreshLead(lead time.Duration) Option {
	return func(m *Manager) { m.refreshLead = lead }
}

// NewManager creates a session Manager around the given auth client.
func NewManager(client AuthClient, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, errors.New("auth client cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	m := &Manager{
		client:      client,
		logger:      logger.With("component", "session_manager"),
		maxAttempts: 3,
		backoffStep: time.Second,
		refreshLead: time.Minute,
		timeFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Register creates an account and establishes a session for it.
// The call is retried up to three times with a linear backoff.
func (m *Manager) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	var tokens *TokenPair
	var identity *Identity

	err := m.withRetry(ctx, "register", func() error {
		var err error
		tokens, identity, err = m.client.Register(ctx, email, password, displayName)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.establish(tokens, identity)
	return identity, nil
}

// Login authenticates and establishes a session.
// The call is retried up to three times with a linear backoff.
func (m *Manager) Login(ctx context.Context, email, password string) (*Identity, error) {
	var tokens *TokenPair
	var identity *Identity

	err := m.withRetry(ctx, "login", func() error {
		var err error
		tokens, identity, err = m.client.Login(ctx, email, password)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.establish(tokens, identity)
	return identity, nil
}

// CurrentIdentity returns the identity of the active session, if any.
func (m *Manager) CurrentIdentity() (*Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil, false
	}
	cp := *m.identity
	return &cp, true
}

// AccessToken returns the current access token.
// Returns ErrNoSession when no session is active or the token expired
// before a refresh landed.
func (m *Manager) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return "", ErrNoSession
	}
	if !m.timeFunc().Before(m.tokens.AccessExpiresAt) {
		m.clearLocked()
		return "", ErrNoSession
	}
	return m.tokens.AccessToken, nil
}

// Logout drops the session and cancels any scheduled refresh.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// withRetry runs fn up to maxAttempts times, sleeping attempt*backoffStep
// between tries. Context cancellation stops the retries immediately.
func (m *Manager) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == m.maxAttempts {
			break
		}

		m.logger.Warn("auth attempt failed, retrying",
			"operation", op,
			"attempt", attempt,
			"error", lastErr)

		backoff := time.Duration(attempt) * m.backoffStep
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, m.maxAttempts, lastErr)
}

// establish installs a new token pair and schedules the next refresh.
func (m *Manager) establish(tokens *TokenPair, identity *Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
	}
	m.tokens = tokens
	m.identity = identity
	m.scheduleRefreshLocked()
}

func (m *Manager) scheduleRefreshLocked() {
	wait := m.tokens.AccessExpiresAt.Sub(m.timeFunc()) - m.refreshLead
	if wait < 0 {
		wait = 0
	}
	m.refreshTimer = time.AfterFunc(wait, m.refresh)
}

// refresh exchanges the refresh token for a new pair. On failure the
// session is cleared so callers see ErrNoSession instead of a token that
// is about to expire.
func (m *Manager) refresh() {
	m.mu.Lock()
	if m.tokens == nil {
		m.mu.Unlock()
		return
	}
	refreshToken := m.tokens.RefreshToken
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := m.client.Refresh(ctx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens == nil || m.tokens.RefreshToken != refreshToken {
		// Session changed under us; discard the result.
		return
	}

	if err != nil {
		m.logger.Warn("token refresh failed, clearing session", "error", err)
		m.clearLocked()
		return
	}

	m.tokens = tokens
	m.scheduleRefreshLocked()
	m.logger.Debug("session tokens refreshed",
		"expires_at", tokens.AccessExpiresAt)
}

func (m *Manager) clearLocked() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	m.tokens = nil
	m.identity = nil
}
