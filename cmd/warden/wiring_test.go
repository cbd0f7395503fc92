// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/delivery"
	"github.com/wardenauth/warden/pkg/errutil"
)

func testHashConfig(scheme string) config.HashConfig {
	cfg := config.Default().Hash
	cfg.Scheme = scheme
	cfg.BcryptCost = 4
	cfg.Argon2id = config.Argon2Config{Time: 1, Memory: 1024, Threads: 1}
	return cfg
}

func TestNewHasher_PrimarySchemeHashes(t *testing.T) {
	tests := []struct {
		scheme string
		prefix string
	}{
		{scheme: "argon2id", prefix: "$argon2id$"},
		{scheme: "bcrypt", prefix: "$2a$"},
	}

	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			hash, err := newHasher(testHashConfig(tt.scheme)).Hash("correct horse")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, tt.prefix), "hash %q", hash)
		})
	}
}

func TestNewHasher_VerifiesOtherSchemeAndFlagsUpgrade(t *testing.T) {
	legacy, err := auth.NewBcryptHasher(4).Hash("correct horse")
	require.NoError(t, err)

	hasher := newHasher(testHashConfig("argon2id"))
	assert.True(t, hasher.Verify("correct horse", legacy))
	assert.False(t, hasher.Verify("wrong", legacy))
	assert.True(t, hasher.NeedsUpgrade(legacy))
}

func TestNewSender(t *testing.T) {
	t.Run("log mode", func(t *testing.T) {
		sender, closeFn, err := newSender(config.DeliveryConfig{Mode: "log"}, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &delivery.LogSender{}, sender)
		assert.Nil(t, closeFn)
	})

	t.Run("smtp mode", func(t *testing.T) {
		cfg := config.Default().Delivery
		cfg.Mode = "smtp"
		cfg.SMTP.Host = "smtp.example.com"
		cfg.SMTP.From = "noreply@example.com"

		sender, closeFn, err := newSender(cfg, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &delivery.SMTPSender{}, sender)
		assert.Nil(t, closeFn)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, _, err := newSender(config.DeliveryConfig{Mode: "fax"}, discardLogger())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestNewService_RejectsBadTokenSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Algorithm = "RS256"

	_, err := newService(cfg, nil, discardDispatcher{}, serviceParts{logger: discardLogger()})
	require.Error(t, err)
}
