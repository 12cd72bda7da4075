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

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user. The users_username_key index decides races: the
// loser gets an error wrapping auth.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	)
	if store.IsUniqueViolation(err) {
		return oops.Code("USER_ALREADY_EXISTS").
			With("username", user.Username).
			Wrap(auth.ErrUserExists)
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr     string
		user      auth.User
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").With("id", idStr).Wrap(err)
	}
	user.ID = id
	user.CreatedAt = createdAt.UTC()
	return &user, nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
