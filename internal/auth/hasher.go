// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// DefaultBcryptCost is the bcrypt work factor used when none is configured.
const DefaultBcryptCost = 10

// argon2id parameters.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash was produced with weaker or
	// different settings than the hasher currently uses.
	NeedsUpgrade(hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's accepted
// range is an error; zero selects DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify checks if the password matches a bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
}

// NeedsUpgrade returns true for non-bcrypt hashes and for bcrypt hashes with
// a lower cost than configured.
func (h *BcryptHasher) NeedsUpgrade(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// Argon2idHasher implements PasswordHasher using argon2id in PHC format.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches an argon2id hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != AlgorithmArgon2id {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	keyLen := len(expected)
	if keyLen == 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(keyLen))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !isArgon2idHash(hash)
}

func isArgon2idHash(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

// MultiHasher hashes with one algorithm and verifies hashes of any supported
// algorithm, so the configured algorithm can change without locking out
// existing users.
type MultiHasher struct {
	primary   PasswordHasher
	bcrypt    *BcryptHasher
	argon2id  *Argon2idHasher
	algorithm string
}

// NewPasswordHasher builds the hasher for the configured algorithm.
func NewPasswordHasher(algorithm string, bcryptCost int) (*MultiHasher, error) {
	bh, err := NewBcryptHasher(bcryptCost)
	if err != nil {
		return nil, err
	}
	mh := &MultiHasher{bcrypt: bh, argon2id: NewArgon2idHasher(), algorithm: algorithm}
	switch algorithm {
	case AlgorithmBcrypt, "":
		mh.primary = bh
		mh.algorithm = AlgorithmBcrypt
	case AlgorithmArgon2id:
		mh.primary = mh.argon2id
	default:
		return nil, oops.Code("AUTH_UNKNOWN_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unsupported password hashing algorithm %q", algorithm)
	}
	return mh, nil
}

// Algorithm returns the algorithm new hashes are produced with.
func (h *MultiHasher) Algorithm() string {
	return h.algorithm
}

// Hash hashes with the configured algorithm.
func (h *MultiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password) //nolint:wrapcheck // already coded
}

// Verify dispatches on the hash prefix.
func (h *MultiHasher) Verify(password, hash string) (bool, error) {
	if isArgon2idHash(hash) {
		return h.argon2id.Verify(password, hash) //nolint:wrapcheck // already coded
	}
	return h.bcrypt.Verify(password, hash) //nolint:wrapcheck // already coded
}

// NeedsUpgrade defers to the configured algorithm.
func (h *MultiHasher) NeedsUpgrade(hash string) bool {
	return h.primary.NeedsUpgrade(hash)
}

// Compile-time interface checks.
var (
	_ PasswordHasher = (*BcryptHasher)(nil)
	_ PasswordHasher = (*Argon2idHasher)(nil)
	_ PasswordHasher = (*MultiHasher)(nil)
)
