// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/wardenauth/warden/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.ErrorKind
	}{
		{"nil", nil, ""},
		{"unauthorized", auth.ErrUnauthorized, auth.KindUnauthorized},
		{"wrapped not found", oops.Code("X").Wrap(auth.ErrNotFound), auth.KindNotFound},
		{"conflict via fmt", fmt.Errorf("create: %w", auth.ErrConflict), auth.KindConflict},
		{"invalid code", auth.ErrInvalidCode, auth.KindInvalidCode},
		{"code expired", auth.ErrCodeExpired, auth.KindCodeExpired},
		{"invalid input", auth.ErrEmptyPassword, auth.KindInvalidInput},
		{"internal", auth.ErrInternal, auth.KindInternal},
		{"unknown error", errors.New("boom"), auth.KindInternal},
		{"deadline", context.DeadlineExceeded, auth.KindInternal},
		{"internal wins", fmt.Errorf("%w: %w", auth.ErrInternal, auth.ErrNotFound), auth.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}
