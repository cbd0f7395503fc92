// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package authtest provides in-memory implementations of the auth
// collaborators for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// UserStore is an in-memory auth.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]auth.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]auth.User)}
}

// GetByUsername returns a copy of the stored user.
func (s *UserStore) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

// Create stores user unless the username is taken.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return oops.Code("USER_EXISTS").With("username", user.Username).Wrap(auth.ErrConflict)
	}
	s.users[user.Username] = *user
	return nil
}

// UpdatePassword replaces the stored hash.
func (s *UserStore) UpdatePassword(_ context.Context, username, passwordHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	s.users[username] = u
	return nil
}

func (s *UserStore) exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// ResetCodeStore is an in-memory auth.ResetCodeRepository. Upsert enforces the
// reference to users the same way the database foreign key does.
type ResetCodeStore struct {
	users *UserStore

	mu    sync.Mutex
	codes map[string]auth.ResetCode
}

// NewResetCodeStore creates an empty ResetCodeStore bound to users.
func NewResetCodeStore(users *UserStore) *ResetCodeStore {
	return &ResetCodeStore{users: users, codes: make(map[string]auth.ResetCode)}
}

// Upsert inserts or replaces the code for code.Username.
func (s *ResetCodeStore) Upsert(_ context.Context, code *auth.ResetCode) error {
	if !s.users.exists(code.Username) {
		return oops.Code("USER_NOT_FOUND").With("username", code.Username).Wrap(auth.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Username] = *code
	return nil
}

// GetByUsername returns a copy of the pending code.
func (s *ResetCodeStore) GetByUsername(_ context.Context, username string) (*auth.ResetCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[username]
	if !ok {
		return nil, oops.Code("RESET_CODE_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return &c, nil
}

// DeleteByUsername removes the pending code.
func (s *ResetCodeStore) DeleteByUsername(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, username)
	return nil
}

// DeleteExpired removes codes that expired at or before now.
func (s *ResetCodeStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for username, c := range s.codes {
		if c.ExpiredAt(now) {
			delete(s.codes, username)
			n++
		}
	}
	return n, nil
}

// Len returns the number of pending codes.
func (s *ResetCodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

var (
	_ auth.UserRepository      = (*UserStore)(nil)
	_ auth.ResetCodeRepository = (*ResetCodeStore)(nil)
)
