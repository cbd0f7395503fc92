// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/delivery"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/internal/store"
)

// Pool wraps the methods used from *pgxpool.Pool.
type Pool interface {
	postgres.DBTX
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator wraps the methods serve uses from store.Migrator.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator wraps the methods the migrate command uses from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Broker wraps the methods the relay uses from delivery.AMQPClient.
type Broker interface {
	Consume(ctx context.Context, consumer string, prefetch int) (<-chan amqp.Delivery, error)
	Close() error
}

// CommonDeps contains dependencies shared by several commands.
// All fields with nil values will use their default implementations.
type CommonDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.OpenPool
	PoolFactory func(ctx context.Context, cfg store.PoolConfig) (Pool, error)
}

func (d *CommonDeps) setDefaults() {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, cfg store.PoolConfig) (Pool, error) {
			return store.OpenPool(ctx, cfg)
		}
	}
}

// ServeDeps contains injectable dependencies for the serve command.
type ServeDeps struct {
	CommonDeps

	// MigratorFactory creates the migrator run when database.auto_migrate is set.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// SenderFactory builds the reset code sender selected by delivery.mode.
	// The returned close function may be nil.
	// Default: newSender
	SenderFactory func(cfg config.DeliveryConfig, logger *slog.Logger) (delivery.Sender, func() error, error)

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// Ready, if set, is called with the API address once every component runs.
	Ready func(apiAddr string)
}

func (d *ServeDeps) setDefaults() {
	d.CommonDeps.setDefaults()
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if d.SenderFactory == nil {
		d.SenderFactory = newSender
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory creates a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

func (d *MigrateDeps) setDefaults() {
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
}

// RelayDeps contains injectable dependencies for the relay command.
type RelayDeps struct {
	// BrokerDialer connects to the broker and declares the queue.
	// Default: delivery.DialAMQP
	BrokerDialer func(url, queue string) (Broker, error)

	// SMTPSenderFactory creates the mail sender.
	// Default: delivery.NewSMTPSender
	SMTPSenderFactory func(cfg delivery.SMTPConfig) (delivery.Sender, error)
}

func (d *RelayDeps) setDefaults() {
	if d.BrokerDialer == nil {
		d.BrokerDialer = func(url, queue string) (Broker, error) {
			return delivery.DialAMQP(url, queue)
		}
	}
	if d.SMTPSenderFactory == nil {
		d.SMTPSenderFactory = func(cfg delivery.SMTPConfig) (delivery.Sender, error) {
			return delivery.NewSMTPSender(cfg)
		}
	}
}
