// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/pkg/errutil"
)

var tracer = otel.Tracer("github.com/deckhall/deckhall/internal/auth")

// dummyPassword is hashed once per Login so that unknown usernames cost the
// same verification work as known ones.
//
//nolint:gosec // G101: not a credential
const dummyPassword = "deckhall-timing-equaliser"

// State is where an authentication attempt ended up.
type State int

// Authentication states.
const (
	StatePending State = iota
	StateAuthenticated
	StateRejected
	StateErrored
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	case StateErrored:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StrategyKind names an AuthStrategy variant.
type StrategyKind string

// Strategy variants.
const (
	KindLogin  StrategyKind = "login"
	KindSignup StrategyKind = "signup"
)

// Credentials is the username and password submitted by a client.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Outcome is the result of one authentication attempt. User is set only when
// State is StateAuthenticated; Err is set for StateRejected and StateErrored.
type Outcome struct {
	State State
	User  *User
	Err   error
}

func authenticated(user *User) Outcome { return Outcome{State: StateAuthenticated, User: user} }
func rejected(err error) Outcome       { return Outcome{State: StateRejected, Err: err} }
func errored(err error) Outcome        { return Outcome{State: StateErrored, Err: err} }

// AuthStrategy verifies or creates an identity from credentials.
// Implementations keep all per-attempt state on the stack, so one value
// serves concurrent requests.
type AuthStrategy interface {
	Kind() StrategyKind
	Authenticate(ctx context.Context, creds Credentials) Outcome
}

// Login authenticates existing users.
type Login struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewLogin creates the login strategy.
func NewLogin(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Login, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Login{users: users, hasher: hasher, logger: logger}, nil
}

// Kind returns KindLogin.
func (l *Login) Kind() StrategyKind { return KindLogin }

func (l *Login) dummy() string {
	l.dummyOnce.Do(func() {
		hash, err := l.hasher.Hash(dummyPassword)
		if err != nil {
			l.logger.Warn("could not prepare dummy hash", "error", err)
			return
		}
		l.dummyHash = hash
	})
	return l.dummyHash
}

// Authenticate looks the user up and verifies the password. Unknown users
// and wrong passwords are indistinguishable to the caller.
func (l *Login) Authenticate(ctx context.Context, creds Credentials) Outcome {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	outcome := l.authenticate(ctx, creds)
	recordOutcome(span, outcome)
	return outcome
}

func (l *Login) authenticate(ctx context.Context, creds Credentials) Outcome {
	user, err := l.users.GetByUsername(ctx, creds.Username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errored(store.Unavailable("get user by username", err))
	}

	if user == nil {
		// Spend the same verification work as a real user would cost.
		_, _ = l.hasher.Verify(creds.Password, l.dummy()) //nolint:errcheck // result is irrelevant
		l.logger.InfoContext(ctx, "login rejected", "username", creds.Username, "reason", "user not found")
		return rejected(invalidCredentials())
	}

	ok, err := l.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return errored(oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err))
	}
	if !ok {
		l.logger.InfoContext(ctx, "login rejected", "username", creds.Username, "reason", "invalid password")
		return rejected(invalidCredentials())
	}

	if l.hasher.NeedsUpgrade(user.PasswordHash) {
		l.logger.InfoContext(ctx, "password hash uses outdated parameters", "user_id", user.ID.String())
	}
	return authenticated(user)
}

// Signup registers new users.
type Signup struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewSignup creates the signup strategy.
func NewSignup(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Signup, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Signup{users: users, hasher: hasher, logger: logger}, nil
}

// Kind returns KindSignup.
func (s *Signup) Kind() StrategyKind { return KindSignup }

// Authenticate validates the credentials, hashes the password and inserts
// the user. The insert is the authority on uniqueness: the up-front lookup
// only avoids hashing for names that are obviously taken.
func (s *Signup) Authenticate(ctx context.Context, creds Credentials) Outcome {
	ctx, span := tracer.Start(ctx, "auth.signup")
	defer span.End()

	outcome := s.authenticate(ctx, creds)
	recordOutcome(span, outcome)
	return outcome
}

func (s *Signup) authenticate(ctx context.Context, creds Credentials) Outcome {
	if err := ValidateUsername(creds.Username); err != nil {
		return rejected(invalidInput("username", err))
	}
	if err := ValidatePassword(creds.Password); err != nil {
		return rejected(invalidInput("password", err))
	}

	existing, err := s.users.GetByUsername(ctx, creds.Username)
	switch {
	case err == nil && existing != nil:
		s.logger.InfoContext(ctx, "signup rejected", "username", creds.Username, "reason", "user already exists")
		return rejected(userExists(creds.Username))
	case err != nil && !errors.Is(err, ErrNotFound):
		return errored(store.Unavailable("get user by username", err))
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return errored(oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err))
	}

	user, err := NewUser(creds.Username, hash)
	if err != nil {
		return errored(oops.Code("AUTH_SIGNUP_FAILED").With("operation", "build user").Wrap(err))
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			s.logger.InfoContext(ctx, "signup rejected", "username", creds.Username, "reason", "lost insert race")
			return rejected(userExists(creds.Username))
		}
		errutil.LogErrorContext(ctx, s.logger, "create user", err)
		return errored(store.Unavailable("create user", err))
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID.String(), "username", user.Username)
	return authenticated(user)
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

func userExists(username string) error {
	return oops.Code("USER_ALREADY_EXISTS").With("username", username).Wrap(ErrUserExists)
}

func invalidInput(field string, err error) error {
	return oops.Code("AUTH_INVALID_INPUT").With("field", field).Wrap(fmt.Errorf("%w: %w", ErrInvalidInput, err))
}

func recordOutcome(span trace.Span, outcome Outcome) {
	span.SetAttributes(attribute.String("auth.state", outcome.State.String()))
	if outcome.State == StateErrored {
		span.SetStatus(codes.Error, outcome.Err.Error())
	}
}

// Compile-time interface checks.
var (
	_ AuthStrategy = (*Login)(nil)
	_ AuthStrategy = (*Signup)(nil)
)
