// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// ResetCodeManager generates, stores and checks password reset codes.
// Codes are stored hashed; only the plaintext returned by GenerateAndStore can
// satisfy Verify, and only until it expires or is overwritten.
type ResetCodeManager struct {
	repo     ResetCodeRepository
	hasher   PasswordHasher
	clock    Clock
	generate func() (string, error)
}

// NewResetCodeManager creates a ResetCodeManager. A nil clock uses SystemClock.
func NewResetCodeManager(repo ResetCodeRepository, hasher PasswordHasher, clock Clock) (*ResetCodeManager, error) {
	if repo == nil {
		return nil, oops.Errorf("reset code repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &ResetCodeManager{
		repo:     repo,
		hasher:   hasher,
		clock:    clockOrSystem(clock),
		generate: GenerateResetCode,
	}, nil
}

// GenerateAndStore creates a new code for username, replacing any pending
// one, and returns the plaintext. Returns an error wrapping ErrNotFound if the
// user does not exist.
func (m *ResetCodeManager) GenerateAndStore(ctx context.Context, username string) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", err
	}

	codeHash, err := m.hasher.Hash(code)
	if err != nil {
		return "", oops.Code("RESET_CODE_HASH_FAILED").With("username", username).Wrap(err)
	}

	now := m.clock.Now()
	record := &ResetCode{
		Username:  username,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(ResetCodeExpiry),
		CreatedAt: now,
	}
	if err := m.repo.Upsert(ctx, record); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("USER_NOT_FOUND").
				With("username", username).
				Wrapf(err, "user with username=%s not found", username)
		}
		return "", oops.With("operation", "store reset code").With("username", username).Wrap(err)
	}

	return code, nil
}

// Verify checks code against the pending code for username. Failures are
// reported in this order: no pending code (ErrNotFound), wrong code
// (ErrInvalidCode), expired code (ErrCodeExpired).
func (m *ResetCodeManager) Verify(ctx context.Context, username, code string) error {
	record, err := m.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return oops.Code("RESET_CODE_NOT_FOUND").
			With("username", username).
			Wrapf(err, "code for user=%s wasn't set", username)
	}
	if err != nil {
		return oops.With("operation", "get reset code").With("username", username).Wrap(err)
	}

	if !m.hasher.Verify(code, record.CodeHash) {
		return oops.Code("RESET_CODE_INVALID").With("username", username).Wrap(ErrInvalidCode)
	}

	if record.ExpiredAt(m.clock.Now()) {
		return oops.Code("RESET_CODE_EXPIRED").
			With("username", username).
			With("expires_at", record.ExpiresAt).
			Wrap(ErrCodeExpired)
	}

	return nil
}

// Consume removes the pending code for username so it cannot be used again.
func (m *ResetCodeManager) Consume(ctx context.Context, username string) error {
	if err := m.repo.DeleteByUsername(ctx, username); err != nil {
		return oops.With("operation", "delete reset code").With("username", username).Wrap(err)
	}
	return nil
}

// PurgeExpired removes every code that has expired and returns how many were
// removed.
func (m *ResetCodeManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.clock.Now())
	if err != nil {
		return 0, oops.With("operation", "purge expired reset codes").Wrap(err)
	}
	return n, nil
}
