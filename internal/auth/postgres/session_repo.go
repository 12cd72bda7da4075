// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/internal/store"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
type SessionStore struct {
	pool store.Pool
	now  func() time.Time
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool store.Pool) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by the hash of its token.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr   string
		session auth.Session
	)
	err := row.Scan(
		&idStr,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastSeenAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	session.ID = id
	return &session, nil
}

// DeleteByTokenHash removes a session.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastSeen records activity on a session.
func (s *SessionStore) UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	result, err := s.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE token_hash = $1`, tokenHash, at)
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").
			With("operation", "update last seen").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.SessionStore = (*SessionStore)(nil)
