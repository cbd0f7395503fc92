// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Sentinel errors for each error kind. Errors returned by this package and its
// repositories wrap exactly one of these, so callers can match with errors.Is
// or classify with KindOf.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidCode  = errors.New("reset code is incorrect")
	ErrCodeExpired  = errors.New("reset code expired")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// ErrorKind classifies an error for callers that translate it into a response.
type ErrorKind string

// Error kinds.
const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInvalidCode  ErrorKind = "invalid_code"
	KindCodeExpired  ErrorKind = "code_expired"
	KindInvalidInput ErrorKind = "invalid_input"
	KindInternal     ErrorKind = "internal"
)

// KindOf returns the kind of err. Unknown errors are KindInternal; a nil error
// has an empty kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInternal):
		return KindInternal
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidCode):
		return KindInvalidCode
	case errors.Is(err, ErrCodeExpired):
		return KindCodeExpired
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// isDomainError reports whether err already carries a domain kind.
func isDomainError(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindNotFound, KindConflict, KindInvalidCode, KindCodeExpired, KindInvalidInput:
		return true
	default:
		return false
	}
}

// internalError marks an infrastructure failure so it classifies as KindInternal
// while keeping the cause in the chain.
func internalError(code, operation string, err error) error {
	return oops.Code(code).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrInternal, err))
}
