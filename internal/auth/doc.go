// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package auth provides the identity layer for Deckhall.
//
// # Domain Types
//
// User and Session are created through NewUser and NewSession, which
// validate their inputs. Repository implementations receive
// pre-validated values.
//
// # Strategies
//
// An AuthStrategy turns a username and password into an Outcome. There are
// two variants:
//   - Login - verifies credentials against the stored hash
//   - Signup - creates a user; the unique index on username settles races
//
// # Sessions
//
// SessionManager maps an opaque cookie token to a user. The session
// subject is the user's store-assigned ID, never the username.
package auth
