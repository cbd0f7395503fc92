// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/samber/oops"
)

// Reset code configuration.
const (
	ResetCodeDigits = 6
	ResetCodeExpiry = 30 * time.Minute
)

var resetCodeSpace = big.NewInt(1_000_000)

// ResetCode is the single pending password reset code for a user.
type ResetCode struct {
	Username  string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the code has expired at now. A code is expired
// from its expiry instant onward.
func (c *ResetCode) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// GenerateResetCode draws a uniformly random, zero-padded numeric code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpace)
	if err != nil {
		return "", oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", ResetCodeDigits, n.Int64()), nil
}

// ResetCodeRepository manages reset code persistence.
type ResetCodeRepository interface {
	// Upsert atomically inserts the code or replaces the existing code for the
	// same username. Returns ErrNotFound if no such user exists.
	Upsert(ctx context.Context, code *ResetCode) error

	// GetByUsername retrieves the pending code. Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*ResetCode, error)

	// DeleteByUsername removes the pending code, if any.
	DeleteByUsername(ctx context.Context, username string) error

	// DeleteExpired removes codes that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
