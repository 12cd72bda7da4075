// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/pkg/errutil"
)

// resolveTimeout bounds a collapsed Resolve, which runs detached from any
// single caller's context.
const resolveTimeout = 5 * time.Second

// SessionManager issues and resolves session tokens.
type SessionManager struct {
	users    UserRepository
	sessions SessionStore
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	inflight singleflight.Group
}

// SessionManagerOption configures a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithSessionTTL sets how long issued sessions live.
func WithSessionTTL(ttl time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSessionLogger sets the logger used for resolution failures.
func WithSessionLogger(logger *slog.Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(users UserRepository, sessions SessionStore, opts ...SessionManagerOption) (*SessionManager, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	m := &SessionManager{
		users:    users,
		sessions: sessions,
		ttl:      DefaultSessionTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime of newly issued sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Serialize returns the session subject for user: its store-assigned ID.
func (m *SessionManager) Serialize(user *User) string {
	return user.ID.String()
}

// Deserialize loads the user a session subject refers to. Every failure,
// including store errors, yields ErrUnauthenticated; the cause is logged.
func (m *SessionManager) Deserialize(ctx context.Context, subject string) (*User, error) {
	id, err := ulid.Parse(subject)
	if err != nil {
		m.logger.WarnContext(ctx, "malformed session subject", "subject", subject)
		return nil, unauthenticated("malformed subject")
	}

	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.logger.InfoContext(ctx, "session subject no longer exists", "user_id", subject)
			return nil, unauthenticated("user not found")
		}
		errutil.LogErrorContext(ctx, m.logger, "load session user", err)
		return nil, unauthenticated("store error")
	}
	return user, nil
}

// Establish opens a session for user and returns the cookie token.
func (m *SessionManager) Establish(ctx context.Context, user *User, client ClientInfo) (string, *Session, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}

	session, err := NewSession(m.Serialize(user), tokenHash, client, m.now().Add(m.ttl))
	if err != nil {
		return "", nil, oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return "", nil, store.Unavailable("create session", err)
	}
	return token, session, nil
}

// Resolve maps a cookie token to its user. Concurrent calls for the same
// token share one lookup.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, unauthenticated("no token")
	}
	tokenHash := HashSessionToken(token)

	v, err, _ := m.inflight.Do(tokenHash, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return m.resolve(rctx, tokenHash)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // resolve returns coded errors
	}
	return v.(*User), nil //nolint:forcetypeassert // resolve only returns *User
}

func (m *SessionManager) resolve(ctx context.Context, tokenHash string) (*User, error) {
	session, err := m.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogErrorContext(ctx, m.logger, "load session", err)
		}
		return nil, unauthenticated("unknown session")
	}

	if session.IsExpiredAt(m.now()) {
		if err := m.sessions.DeleteByTokenHash(ctx, tokenHash); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogErrorContext(ctx, m.logger, "delete expired session", err)
		}
		return nil, unauthenticated("session expired")
	}

	user, err := m.Deserialize(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	// Best effort; a stale timestamp never fails the request.
	if err := m.sessions.UpdateLastSeen(ctx, tokenHash, m.now().UTC()); err != nil && !errors.Is(err, ErrNotFound) {
		errutil.LogErrorContext(ctx, m.logger, "touch session", err)
	}
	return user, nil
}

// Destroy ends the session behind token. Unknown tokens are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := m.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return store.Unavailable("delete session", err)
	}
	return nil
}

// Reap deletes expired sessions.
func (m *SessionManager) Reap(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, store.Unavailable("delete expired sessions", err)
	}
	return n, nil
}

// RunReaper calls Reap every interval until ctx is done.
func (m *SessionManager) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Reap(ctx)
			if err != nil {
				errutil.LogErrorContext(ctx, m.logger, "reap sessions", err)
				continue
			}
			if n > 0 {
				m.logger.InfoContext(ctx, "reaped expired sessions", "count", n)
			}
		}
	}
}

func unauthenticated(reason string) error {
	return oops.Code("UNAUTHENTICATED").With("reason", reason).Wrap(ErrUnauthenticated)
}
