// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/authtest"
	"github.com/wardenauth/warden/internal/auth/mocks"
	"github.com/wardenauth/warden/pkg/errutil"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateResetCode(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code, err := auth.GenerateResetCode()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 150, "codes should be spread over the code space")
}

func TestResetCode_ExpiredAt(t *testing.T) {
	code := &auth.ResetCode{ExpiresAt: authtest.Epoch}

	assert.False(t, code.ExpiredAt(authtest.Epoch.Add(-time.Nanosecond)))
	assert.True(t, code.ExpiredAt(authtest.Epoch), "expired at the expiry instant")
	assert.True(t, code.ExpiredAt(authtest.Epoch.Add(time.Second)))
}

func TestNewResetCodeManager_RequiresDependencies(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	_, err := auth.NewResetCodeManager(nil, hasher, nil)
	assert.ErrorContains(t, err, "reset code repository is required")

	_, err = auth.NewResetCodeManager(authtest.NewResetCodeStore(authtest.NewUserStore()), nil, nil)
	assert.ErrorContains(t, err, "password hasher is required")
}

func TestResetCodeManager(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*auth.ResetCodeManager, *authtest.ResetCodeStore, *authtest.Clock) {
		t.Helper()
		users := authtest.NewUserStore()
		require.NoError(t, users.Create(ctx, &auth.User{Username: "alice", PasswordHash: "x"}))
		codes := authtest.NewResetCodeStore(users)
		clock := authtest.NewClock(authtest.Epoch)
		m, err := auth.NewResetCodeManager(codes, auth.NewBcryptHasher(bcrypt.MinCost), clock)
		require.NoError(t, err)
		return m, codes, clock
	}

	t.Run("stores hashed code with 30 minute expiry", func(t *testing.T) {
		m, codes, _ := setup(t)

		code, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)

		stored, err := codes.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.NotEqual(t, code, stored.CodeHash)
		assert.Equal(t, authtest.Epoch.Add(30*time.Minute), stored.ExpiresAt)
		assert.Equal(t, authtest.Epoch, stored.CreatedAt)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		m, _, _ := setup(t)

		_, err := m.GenerateAndStore(ctx, "nobody")
		require.Error(t, err)
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
		assert.Contains(t, err.Error(), "user with username=nobody not found")
	})

	t.Run("verify accepts the stored code", func(t *testing.T) {
		m, _, clock := setup(t)

		code, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(29 * time.Minute)
		assert.NoError(t, m.Verify(ctx, "alice", code))
	})

	t.Run("verify without pending code is not found", func(t *testing.T) {
		m, _, _ := setup(t)

		err := m.Verify(ctx, "alice", "123456")
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
		errutil.AssertErrorCode(t, err, "RESET_CODE_NOT_FOUND")
	})

	t.Run("wrong code is invalid", func(t *testing.T) {
		m, _, _ := setup(t)

		code, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)

		wrong := "000000"
		if code == wrong {
			wrong = "000001"
		}
		err = m.Verify(ctx, "alice", wrong)
		assert.ErrorIs(t, err, auth.ErrInvalidCode)
		errutil.AssertErrorCode(t, err, "RESET_CODE_INVALID")
	})

	t.Run("code expires at 30 minutes", func(t *testing.T) {
		m, _, clock := setup(t)

		code, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)

		clock.Advance(30 * time.Minute)
		err = m.Verify(ctx, "alice", code)
		assert.ErrorIs(t, err, auth.ErrCodeExpired)
		errutil.AssertErrorCode(t, err, "RESET_CODE_EXPIRED")
	})

	t.Run("wrong code reports invalid before expired", func(t *testing.T) {
		m, _, clock := setup(t)

		code, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)
		clock.Advance(time.Hour)

		wrong := "999999"
		if code == wrong {
			wrong = "999998"
		}
		assert.ErrorIs(t, m.Verify(ctx, "alice", wrong), auth.ErrInvalidCode)
	})

	t.Run("new code replaces the previous one", func(t *testing.T) {
		m, codes, _ := setup(t)

		first, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)
		second, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, codes.Len())

		require.NoError(t, m.Verify(ctx, "alice", second))
		if first != second {
			assert.ErrorIs(t, m.Verify(ctx, "alice", first), auth.ErrInvalidCode)
		}
	})

	t.Run("consume removes the code", func(t *testing.T) {
		m, codes, _ := setup(t)

		_, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)
		require.NoError(t, m.Consume(ctx, "alice"))
		assert.Equal(t, 0, codes.Len())
	})

	t.Run("purge removes only expired codes", func(t *testing.T) {
		m, codes, clock := setup(t)

		_, err := m.GenerateAndStore(ctx, "alice")
		require.NoError(t, err)

		n, err := m.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		clock.Advance(31 * time.Minute)
		n, err = m.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 0, codes.Len())
	})
}

func TestResetCodeManager_StoreErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	t.Run("upsert failure is not a domain error", func(t *testing.T) {
		repo := mocks.NewMockResetCodeRepository(t)
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *auth.ResetCode) bool {
			return c.Username == "alice" && c.CodeHash != ""
		})).Return(dbErr)

		m, err := auth.NewResetCodeManager(repo, auth.NewBcryptHasher(bcrypt.MinCost), nil)
		require.NoError(t, err)

		_, err = m.GenerateAndStore(ctx, "alice")
		require.ErrorIs(t, err, dbErr)
		assert.Equal(t, auth.KindInternal, auth.KindOf(err))
		errutil.AssertErrorContext(t, err, "operation", "store reset code")
	})

	t.Run("lookup failure is not a domain error", func(t *testing.T) {
		repo := mocks.NewMockResetCodeRepository(t)
		repo.On("GetByUsername", mock.Anything, "alice").Return(nil, dbErr)

		m, err := auth.NewResetCodeManager(repo, auth.NewBcryptHasher(bcrypt.MinCost), nil)
		require.NoError(t, err)

		err = m.Verify(ctx, "alice", "123456")
		require.ErrorIs(t, err, dbErr)
		assert.Equal(t, auth.KindInternal, auth.KindOf(err))
	})

	t.Run("purge passes the current time", func(t *testing.T) {
		clock := authtest.NewClock(authtest.Epoch)
		repo := mocks.NewMockResetCodeRepository(t)
		repo.On("DeleteExpired", mock.Anything, authtest.Epoch).Return(int64(3), nil)

		m, err := auth.NewResetCodeManager(repo, auth.NewBcryptHasher(bcrypt.MinCost), clock)
		require.NoError(t, err)

		n, err := m.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
