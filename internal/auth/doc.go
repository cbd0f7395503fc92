// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package auth implements password authentication, bearer tokens and the
// reset-code flow for Warden.
//
// # Domain Types
//
// Users are created with NewUser, which validates the username. Reset codes
// are created by ResetCodeManager and never constructed by callers.
//
// # Components
//
//   - PasswordHasher - Argon2idHasher, BcryptHasher, and HasherChain to verify
//     hashes made by a previously configured scheme
//   - TokenIssuer - HMAC-signed JWTs with a default lifetime
//   - ResetCodeManager - six-digit codes stored hashed with a fixed expiry
//   - Service - Login, Register, RequestReset, ConfirmReset, Bootstrap and
//     Authenticate
//
// # Errors
//
// Every error returned by Service wraps one of the sentinel errors
// (ErrUnauthorized, ErrNotFound, ErrConflict, ErrInvalidCode, ErrCodeExpired,
// ErrInvalidInput, ErrInternal). Use KindOf to classify an error.
package auth
