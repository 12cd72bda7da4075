// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes     = 32 // 64 hex chars
	DefaultSessionTimeout = 24 * time.Hour
)

// Session maps a hashed cookie token to the serialized user subject.
type Session struct {
	ID         ulid.ULID
	UserID     string
	TokenHash  string
	UserAgent  string
	IPAddress  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ClientInfo describes the browser a session is issued to.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// NewSession creates a validated Session.
func NewSession(subject, tokenHash string, client ClientInfo, expiresAt time.Time) (*Session, error) {
	if subject == "" {
		return nil, oops.Code("SESSION_INVALID_SUBJECT").Errorf("session subject cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	now := time.Now().UTC()
	return &Session{
		ID:         ulid.Make(),
		UserID:     subject,
		TokenHash:  tokenHash,
		UserAgent:  client.UserAgent,
		IPAddress:  client.IPAddress,
		ExpiresAt:  expiresAt.UTC(),
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// IsExpiredAt reports whether the session is past its expiry at t.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a random token and its hash.
// The token goes to the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA-256 hex digest of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionStore persists sessions keyed by token hash.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session. Returns ErrNotFound if absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session. Returns ErrNotFound if absent.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// UpdateLastSeen records activity on a session. Returns ErrNotFound if
	// absent.
	UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error

	// DeleteExpired removes sessions whose expiry has passed and returns
	// how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
