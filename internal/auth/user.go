// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// MaxPasswordBytes is the longest password accepted. bcrypt ignores
// anything past 72 bytes, so longer input is refused instead of silently
// truncated.
const MaxPasswordBytes = 72

// usernameRegex matches usernames that start with a letter and contain only
// letters, digits and underscores.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User is a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername checks length and character rules. Usernames are
// case-sensitive as stored.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidatePassword rejects empty and over-long passwords.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("max", MaxPasswordBytes).
			Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. It returns an error wrapping ErrUserExists
	// when the username is taken, including when a concurrent Create won.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)
}
