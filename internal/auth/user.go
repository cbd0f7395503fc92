// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints, counted in characters.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 100
)

// User is an account that can log in.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a User with a validated username and a fresh ID.
// passwordHash must already be hashed.
func NewUser(username, passwordHash string, now time.Time) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_USER").Wrapf(ErrInvalidInput, "password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername checks that username is between MinUsernameLength and
// MaxUsernameLength characters and has no surrounding whitespace.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Wrapf(ErrInvalidInput, "username cannot be empty")
	}
	if strings.TrimSpace(username) != username {
		return oops.Code("AUTH_INVALID_USERNAME").
			Wrapf(ErrInvalidInput, "username cannot start or end with whitespace")
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at least %d characters", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Wrapf(ErrInvalidInput, "username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// GetByUsername retrieves a user. Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Create stores a new user. Returns ErrConflict if the username is taken.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored hash. Returns ErrNotFound if absent.
	UpdatePassword(ctx context.Context, username, passwordHash string, updatedAt time.Time) error
}
