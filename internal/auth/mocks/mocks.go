// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package mocks provides testify mocks for the auth repositories.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/wardenauth/warden/internal/auth"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GetByUsername implements auth.UserRepository.
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	ret := m.Called(ctx, username)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// Create implements auth.UserRepository.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// UpdatePassword implements auth.UserRepository.
func (m *MockUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string, updatedAt time.Time) error {
	return m.Called(ctx, username, passwordHash, updatedAt).Error(0)
}

// MockResetCodeRepository is a mock auth.ResetCodeRepository.
type MockResetCodeRepository struct {
	mock.Mock
}

// NewMockResetCodeRepository creates a MockResetCodeRepository whose
// expectations are asserted when the test ends.
func NewMockResetCodeRepository(t testingT) *MockResetCodeRepository {
	m := &MockResetCodeRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Upsert implements auth.ResetCodeRepository.
func (m *MockResetCodeRepository) Upsert(ctx context.Context, code *auth.ResetCode) error {
	return m.Called(ctx, code).Error(0)
}

// GetByUsername implements auth.ResetCodeRepository.
func (m *MockResetCodeRepository) GetByUsername(ctx context.Context, username string) (*auth.ResetCode, error) {
	ret := m.Called(ctx, username)
	var code *auth.ResetCode
	if v := ret.Get(0); v != nil {
		code = v.(*auth.ResetCode)
	}
	return code, ret.Error(1)
}

// DeleteByUsername implements auth.ResetCodeRepository.
func (m *MockResetCodeRepository) DeleteByUsername(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

// DeleteExpired implements auth.ResetCodeRepository.
func (m *MockResetCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

var (
	_ auth.UserRepository      = (*MockUserRepository)(nil)
	_ auth.ResetCodeRepository = (*MockResetCodeRepository)(nil)
)
