// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package redis implements auth.SessionStore on Redis. Keys expire with
// their sessions, so there is nothing for a reaper to do.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/auth"
)

const sessionKeyPrefix = "session:"

// record is the JSON stored under each key.
type record struct {
	ID         ulid.ULID `json:"id"`
	UserID     string    `json:"user_id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionStore implements auth.SessionStore using Redis.
type SessionStore struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

// NewSessionStore creates a SessionStore on an existing client.
func NewSessionStore(rdb goredis.UniversalClient) *SessionStore {
	return &SessionStore{rdb: rdb, now: time.Now}
}

// Open parses a redis:// URL, connects and pings.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Wrap(err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return client, nil
}

func key(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}

// Create stores the session with a TTL matching its expiry. A session that
// has already expired is not stored.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(record{
		ID:         session.ID,
		UserID:     session.UserID,
		UserAgent:  session.UserAgent,
		IPAddress:  session.IPAddress,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		LastSeenAt: session.LastSeenAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "marshal session").Wrap(err)
	}

	if err := s.rdb.Set(ctx, key(session.TokenHash), payload, ttl).Err(); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "set session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash loads a session.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	payload, err := s.rdb.Get(ctx, key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "get session").Wrap(err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "decode session").Wrap(err)
	}
	return &auth.Session{
		ID:         rec.ID,
		UserID:     rec.UserID,
		TokenHash:  tokenHash,
		UserAgent:  rec.UserAgent,
		IPAddress:  rec.IPAddress,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
		LastSeenAt: rec.LastSeenAt,
	}, nil
}

// DeleteByTokenHash removes a session.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	n, err := s.rdb.Del(ctx, key(tokenHash)).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "delete session").Wrap(err)
	}
	if n == 0 {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastSeen rewrites the stored record, keeping its TTL. A key that
// expired in the meantime is not recreated.
func (s *SessionStore) UpdateLastSeen(ctx context.Context, tokenHash string, at time.Time) error {
	payload, err := s.rdb.Get(ctx, key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "get session").Wrap(err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "decode session").Wrap(err)
	}
	rec.LastSeenAt = at
	if payload, err = json.Marshal(rec); err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "marshal session").Wrap(err)
	}

	err = s.rdb.SetArgs(ctx, key(tokenHash), payload, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, goredis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_FAILED").With("operation", "set session").Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (s *SessionStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

var _ auth.SessionStore = (*SessionStore)(nil)
