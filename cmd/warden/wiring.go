// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/delivery"
	"github.com/wardenauth/warden/internal/store"
)

func poolConfig(cfg config.DatabaseConfig) store.PoolConfig {
	return store.PoolConfig{
		URL:             cfg.URL,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	}
}

// newHasher returns the configured scheme as primary with the other scheme
// kept for verifying older hashes.
func newHasher(cfg config.HashConfig) auth.PasswordHasher {
	argon := auth.NewArgon2idHasherWithParams(auth.Argon2idParams{
		Time:    cfg.Argon2id.Time,
		Memory:  cfg.Argon2id.Memory,
		Threads: cfg.Argon2id.Threads,
	})
	bcrypt := auth.NewBcryptHasher(cfg.BcryptCost)

	if cfg.Scheme == "bcrypt" {
		return auth.NewHasherChain(bcrypt, argon)
	}
	return auth.NewHasherChain(argon, bcrypt)
}

func smtpConfig(cfg config.SMTPConfig) delivery.SMTPConfig {
	return delivery.SMTPConfig{
		Host:               cfg.Host,
		Port:               cfg.Port,
		Username:           cfg.Username,
		Password:           cfg.Password,
		From:               cfg.From,
		Subject:            cfg.Subject,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
}

func dispatcherConfig(cfg config.DeliveryConfig) delivery.DispatcherConfig {
	return delivery.DispatcherConfig{
		QueueSize:  cfg.QueueSize,
		Workers:    cfg.Workers,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
	}
}

// newSender builds the Sender for delivery.mode. The close function releases
// the broker connection in amqp mode and is nil otherwise.
func newSender(cfg config.DeliveryConfig, logger *slog.Logger) (delivery.Sender, func() error, error) {
	switch cfg.Mode {
	case "log":
		return delivery.NewLogSender(logger), nil, nil
	case "smtp":
		sender, err := delivery.NewSMTPSender(smtpConfig(cfg.SMTP))
		if err != nil {
			return nil, nil, err
		}
		return sender, nil, nil
	case "amqp":
		client, err := delivery.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return nil, nil, err
		}
		return client.Sender(), client.Close, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("mode", cfg.Mode).
			Errorf("unknown delivery mode %q", cfg.Mode)
	}
}

// serviceParts are the optional collaborators of newService.
type serviceParts struct {
	logger  *slog.Logger
	metrics auth.MetricsRecorder
}

// newService wires an auth.Service to the Postgres repositories on db.
func newService(cfg *config.Config, db postgres.DBTX, dispatcher auth.CodeDispatcher, parts serviceParts) (*auth.Service, error) {
	hasher := newHasher(cfg.Hash)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:    []byte(cfg.Token.Secret),
		Algorithm: cfg.Token.Algorithm,
		TTL:       cfg.Token.TTL,
		Issuer:    cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	codes, err := auth.NewResetCodeManager(postgres.NewResetCodeRepository(db), hasher, nil)
	if err != nil {
		return nil, oops.With("operation", "create reset code manager").Wrap(err)
	}

	opts := []auth.ServiceOption{
		auth.WithLogger(parts.logger),
		auth.WithStoreTimeout(cfg.Database.StoreTimeout),
	}
	if parts.metrics != nil {
		opts = append(opts, auth.WithMetrics(parts.metrics))
	}

	svc, err := auth.NewService(postgres.NewUserRepository(db), codes, hasher, tokens, dispatcher, opts...)
	if err != nil {
		return nil, oops.With("operation", "create auth service").Wrap(err)
	}
	return svc, nil
}

// discardDispatcher is used by commands that never request a reset.
type discardDispatcher struct{}

func (discardDispatcher) Dispatch(context.Context, string, string) {}
