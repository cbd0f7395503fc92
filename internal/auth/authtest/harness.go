// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package authtest

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/internal/auth"
)

// Epoch is the start time of every Harness clock.
var Epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// TestSecret signs tokens issued by a Harness.
const TestSecret = "authtest-secret-key-0123456789abcdef"

// Harness wires an auth.Service to in-memory collaborators.
type Harness struct {
	Users      *UserStore
	Codes      *ResetCodeStore
	Clock      *Clock
	Dispatcher *Dispatcher
	Hasher     auth.PasswordHasher
	Tokens     *auth.TokenIssuer
	Manager    *auth.ResetCodeManager
	Service    *auth.Service
}

// NewHarness builds a Harness using a cheap bcrypt cost.
func NewHarness(t testing.TB, opts ...auth.ServiceOption) *Harness {
	t.Helper()

	users := NewUserStore()
	codes := NewResetCodeStore(users)
	clock := NewClock(Epoch)
	dispatcher := &Dispatcher{}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: []byte(TestSecret),
		TTL:    time.Hour,
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	manager, err := auth.NewResetCodeManager(codes, hasher, clock)
	if err != nil {
		t.Fatalf("reset code manager: %v", err)
	}

	svc, err := auth.NewService(users, manager, hasher, tokens, dispatcher,
		append([]auth.ServiceOption{auth.WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	return &Harness{
		Users:      users,
		Codes:      codes,
		Clock:      clock,
		Dispatcher: dispatcher,
		Hasher:     hasher,
		Tokens:     tokens,
		Manager:    manager,
		Service:    svc,
	}
}
