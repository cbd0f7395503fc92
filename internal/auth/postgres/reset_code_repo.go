// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// ResetCodeRepository implements auth.ResetCodeRepository using PostgreSQL.
type ResetCodeRepository struct {
	db DBTX
}

// NewResetCodeRepository creates a new ResetCodeRepository.
func NewResetCodeRepository(db DBTX) *ResetCodeRepository {
	return &ResetCodeRepository{db: db}
}

// Upsert inserts the code or replaces the pending code for the same username
// in a single statement. The foreign key on username reports unknown users,
// which surface as auth.ErrNotFound.
func (r *ResetCodeRepository) Upsert(ctx context.Context, code *auth.ResetCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reset_password_codes (username, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`, code.Username, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		if sqlState, ok := constraintViolation(err); ok && sqlState == pgerrcode.ForeignKeyViolation {
			return oops.Code("USER_NOT_FOUND").
				With("username", code.Username).
				Wrap(auth.ErrNotFound)
		}
		return oops.Code("RESET_CODE_UPSERT_FAILED").
			With("operation", "upsert reset code").
			With("username", code.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves the pending code for username.
func (r *ResetCodeRepository) GetByUsername(ctx context.Context, username string) (*auth.ResetCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT username, code_hash, expires_at, created_at
		FROM reset_password_codes
		WHERE username = $1
	`, username)

	var code auth.ResetCode
	err := row.Scan(&code.Username, &code.CodeHash, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_CODE_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_CODE_SCAN_FAILED").
			With("operation", "scan reset code").
			With("username", username).
			Wrap(err)
	}
	return &code, nil
}

// DeleteByUsername removes the pending code for username.
func (r *ResetCodeRepository) DeleteByUsername(ctx context.Context, username string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM reset_password_codes WHERE username = $1
	`, username)
	if err != nil {
		return oops.Code("RESET_CODE_DELETE_FAILED").
			With("operation", "delete reset code").
			With("username", username).
			Wrap(err)
	}
	// No ErrNotFound if no rows deleted - that's a valid state
	return nil
}

// DeleteExpired removes codes that expired at or before now and returns the count.
func (r *ResetCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM reset_password_codes WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, oops.Code("RESET_CODE_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset codes").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.ResetCodeRepository = (*ResetCodeRepository)(nil)
