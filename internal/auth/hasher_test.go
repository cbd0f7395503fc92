// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// cheapArgon2 keeps argon2id tests fast.
var cheapArgon2 = auth.Argon2idParams{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
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
		assert.Equal(t, auth.KindInvalidInput, auth.KindOf(err))
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(cheapArgon2)

	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	malformed := []struct {
		name string
		hash string
	}{
		{"not a hash", "not-a-valid-hash"},
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"unknown version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$m=abc,t=1,p=4$c2FsdA$aGFzaA"},
		{"threads overflow", "$argon2id$v=19$m=1024,t=1,p=256$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA"},
		{"bad key encoding", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!!"},
		{"empty key", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$"},
		{"bcrypt hash", "$2a$04$abcdefghijklmnopqrstuuJk7Y2D7sL6D8Bq3fP1ZkqB9oM6pQxYa"},
	}
	for _, tt := range malformed {
		t.Run("malformed: "+tt.name, func(t *testing.T) {
			assert.False(t, hasher.Verify("password", tt.hash))
		})
	}
}

func TestArgon2idHasher_NeedsUpgrade(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(cheapArgon2)

	current, err := hasher.Hash("password")
	require.NoError(t, err)
	assert.False(t, hasher.NeedsUpgrade(current))

	stronger := auth.NewArgon2idHasherWithParams(auth.Argon2idParams{Time: 2, Memory: 1024, Threads: 1})
	assert.True(t, stronger.NeedsUpgrade(current), "different cost needs upgrade")
	assert.True(t, hasher.NeedsUpgrade("$2a$10$whatever"), "other scheme needs upgrade")
	assert.True(t, hasher.NeedsUpgrade("garbage"))
}

func TestBcryptHasher(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter22")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, hasher.Verify("hunter22", hash))
	assert.False(t, hasher.Verify("hunter23", hash))
	assert.False(t, hasher.Verify("hunter22", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"))
	assert.False(t, hasher.Verify("hunter22", "$2a$garbage"))

	assert.False(t, hasher.NeedsUpgrade(hash))
	assert.True(t, auth.NewBcryptHasher(bcrypt.MinCost+1).NeedsUpgrade(hash))

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Equal(t, auth.KindInvalidInput, auth.KindOf(err))
	})

	t.Run("rejects password over 72 bytes", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("x", 73))
		require.Error(t, err)
		assert.Equal(t, auth.KindInvalidInput, auth.KindOf(err))
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_LONG")
	})

	t.Run("out of range cost uses default", func(t *testing.T) {
		h := auth.NewBcryptHasher(100)
		assert.True(t, h.NeedsUpgrade(hash))
	})
}

func TestHasherChain(t *testing.T) {
	argon := auth.NewArgon2idHasherWithParams(cheapArgon2)
	bc := auth.NewBcryptHasher(bcrypt.MinCost)

	legacyHash, err := bc.Hash("password")
	require.NoError(t, err)

	chain := auth.NewHasherChain(argon, bc)

	t.Run("hashes with primary", func(t *testing.T) {
		hash, err := chain.Hash("password")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
		assert.True(t, chain.Verify("password", hash))
		assert.False(t, chain.NeedsUpgrade(hash))
	})

	t.Run("verifies legacy hashes", func(t *testing.T) {
		assert.True(t, chain.Verify("password", legacyHash))
		assert.False(t, chain.Verify("other", legacyHash))
		assert.True(t, chain.NeedsUpgrade(legacyHash))
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		assert.False(t, chain.Verify("password", "plaintext"))
	})
}
