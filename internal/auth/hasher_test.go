// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/pkg/errutil"
)

func TestBcryptHasher(t *testing.T) {
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("hash verifies with the same password", func(t *testing.T) {
		hash, err := hasher.Hash("wonderland")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))

		ok, err := hasher.Verify("wonderland", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password does not verify", func(t *testing.T) {
		hash, err := hasher.Hash("wonderland")
		require.NoError(t, err)

		ok, err := hasher.Verify("looking-glass", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("malformed hash returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("lower cost needs upgrade", func(t *testing.T) {
		stronger, err := auth.NewBcryptHasher(bcrypt.MinCost + 1)
		require.NoError(t, err)

		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.True(t, stronger.NeedsUpgrade(hash))
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("non-bcrypt hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"))
	})
}

func TestNewBcryptHasher(t *testing.T) {
	t.Run("zero cost selects default", func(t *testing.T) {
		hasher, err := auth.NewBcryptHasher(0)
		require.NoError(t, err)

		hash, err := hasher.Hash("x")
		require.NoError(t, err)
		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultBcryptCost, cost)
	})

	t.Run("out of range cost fails", func(t *testing.T) {
		_, err := auth.NewBcryptHasher(bcrypt.MaxCost + 1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_COST")
		errutil.AssertErrorContext(t, err, "cost", bcrypt.MaxCost+1)
	})
}

func TestArgon2idHasher(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)
	})

	t.Run("invalid hash format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		assert.Error(t, err)
	})

	t.Run("wrong algorithm returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported hash algorithm")
	})

	t.Run("threads overflow returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threads value")
	})

	t.Run("bcrypt hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade("$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5"))
	})
}

func TestNewPasswordHasher(t *testing.T) {
	t.Run("empty algorithm means bcrypt", func(t *testing.T) {
		hasher, err := auth.NewPasswordHasher("", bcrypt.MinCost)
		require.NoError(t, err)
		assert.Equal(t, auth.AlgorithmBcrypt, hasher.Algorithm())
	})

	t.Run("unknown algorithm fails", func(t *testing.T) {
		_, err := auth.NewPasswordHasher("md5", 0)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_UNKNOWN_ALGORITHM")
	})

	t.Run("invalid bcrypt cost fails", func(t *testing.T) {
		_, err := auth.NewPasswordHasher(auth.AlgorithmArgon2id, 1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_COST")
	})
}

func TestMultiHasher_VerifiesEitherAlgorithm(t *testing.T) {
	bcryptFirst, err := auth.NewPasswordHasher(auth.AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	argonFirst, err := auth.NewPasswordHasher(auth.AlgorithmArgon2id, bcrypt.MinCost)
	require.NoError(t, err)

	bcryptHash, err := bcryptFirst.Hash("secret")
	require.NoError(t, err)
	argonHash, err := argonFirst.Hash("secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(argonHash, "$argon2id$"))

	tests := []struct {
		name   string
		hasher *auth.MultiHasher
		hash   string
	}{
		{"bcrypt hasher verifies argon2id hash", bcryptFirst, argonHash},
		{"argon2id hasher verifies bcrypt hash", argonFirst, bcryptHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.hasher.Verify("secret", tt.hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = tt.hasher.Verify("not-secret", tt.hash)
			require.NoError(t, err)
			assert.False(t, ok)

			assert.True(t, tt.hasher.NeedsUpgrade(tt.hash))
		})
	}
}
