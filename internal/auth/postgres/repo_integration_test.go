// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/postgres"
)

func createTestUser(ctx context.Context, t *testing.T, username string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(username, "hash-"+username, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	require.NoError(t, postgres.NewUserRepository(testPool).Create(ctx, user))
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), `DELETE FROM users WHERE username = $1`, username)
	})
	return user
}

func TestUserRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	t.Run("create and get", func(t *testing.T) {
		user := createTestUser(ctx, t, "integration-alice")

		got, err := repo.GetByUsername(ctx, "integration-alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.PasswordHash, got.PasswordHash)
		assert.True(t, user.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate username conflicts and keeps the original", func(t *testing.T) {
		createTestUser(ctx, t, "integration-bob")

		dup, err := auth.NewUser("integration-bob", "other-hash", time.Now())
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.Equal(t, auth.KindConflict, auth.KindOf(err))

		got, err := repo.GetByUsername(ctx, "integration-bob")
		require.NoError(t, err)
		assert.Equal(t, "hash-integration-bob", got.PasswordHash)
	})

	t.Run("update password", func(t *testing.T) {
		createTestUser(ctx, t, "integration-carol")
		later := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)

		require.NoError(t, repo.UpdatePassword(ctx, "integration-carol", "new-hash", later))

		got, err := repo.GetByUsername(ctx, "integration-carol")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.True(t, later.Equal(got.UpdatedAt))
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "integration-nobody")
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))

		err = repo.UpdatePassword(ctx, "integration-nobody", "h", time.Now())
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
	})
}

func TestResetCodeRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewResetCodeRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("upsert replaces the pending code", func(t *testing.T) {
		createTestUser(ctx, t, "integration-dave")

		first := &auth.ResetCode{Username: "integration-dave", CodeHash: "first", ExpiresAt: now.Add(time.Minute), CreatedAt: now}
		second := &auth.ResetCode{Username: "integration-dave", CodeHash: "second", ExpiresAt: now.Add(2 * time.Minute), CreatedAt: now.Add(time.Second)}
		require.NoError(t, repo.Upsert(ctx, first))
		require.NoError(t, repo.Upsert(ctx, second))

		got, err := repo.GetByUsername(ctx, "integration-dave")
		require.NoError(t, err)
		assert.Equal(t, "second", got.CodeHash)
		assert.True(t, second.ExpiresAt.Equal(got.ExpiresAt))

		var count int
		require.NoError(t, testPool.QueryRow(ctx,
			`SELECT count(*) FROM reset_password_codes WHERE username = $1`, "integration-dave").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		err := repo.Upsert(ctx, &auth.ResetCode{Username: "integration-ghost", CodeHash: "h", ExpiresAt: now, CreatedAt: now})
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
	})

	t.Run("delete by username", func(t *testing.T) {
		createTestUser(ctx, t, "integration-erin")
		require.NoError(t, repo.Upsert(ctx, &auth.ResetCode{Username: "integration-erin", CodeHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

		require.NoError(t, repo.DeleteByUsername(ctx, "integration-erin"))
		_, err := repo.GetByUsername(ctx, "integration-erin")
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))

		require.NoError(t, repo.DeleteByUsername(ctx, "integration-erin"), "deleting twice is fine")
	})

	t.Run("delete expired keeps live codes", func(t *testing.T) {
		createTestUser(ctx, t, "integration-frank")
		createTestUser(ctx, t, "integration-grace")
		require.NoError(t, repo.Upsert(ctx, &auth.ResetCode{Username: "integration-frank", CodeHash: "h", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}))
		require.NoError(t, repo.Upsert(ctx, &auth.ResetCode{Username: "integration-grace", CodeHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = repo.GetByUsername(ctx, "integration-frank")
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
		_, err = repo.GetByUsername(ctx, "integration-grace")
		assert.NoError(t, err)
	})

	t.Run("deleting the user cascades", func(t *testing.T) {
		createTestUser(ctx, t, "integration-heidi")
		require.NoError(t, repo.Upsert(ctx, &auth.ResetCode{Username: "integration-heidi", CodeHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

		_, err := testPool.Exec(ctx, `DELETE FROM users WHERE username = $1`, "integration-heidi")
		require.NoError(t, err)

		_, err = repo.GetByUsername(ctx, "integration-heidi")
		assert.Equal(t, auth.KindNotFound, auth.KindOf(err))
	})
}
