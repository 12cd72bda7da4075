// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when a username is already registered.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. Callers are never told which.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidInput is returned when a username or password breaks the
// validation rules.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnauthenticated is returned when a token does not resolve to a live
// user.
var ErrUnauthenticated = errors.New("unauthenticated")
