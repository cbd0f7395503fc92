// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/delivery"
)

// relayConsumer names the relay's consumer on the broker.
const relayConsumer = "warden-relay"

// NewRelayCmd creates the relay subcommand.
func NewRelayCmd() *cobra.Command {
	return newRelayCmd(nil)
}

func newRelayCmd(deps *RelayDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Mail reset codes queued on the broker",
		Long: `Consume reset codes that serve published in amqp delivery mode and send
them over SMTP. Run any number of relays against the same queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := setupLogging(cmd, cfg.Log)
			if err != nil {
				return err
			}
			return runRelayWithDeps(cmd.Context(), cfg, logger, deps)
		},
	}

	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaultLogLevel, "log level (debug, info, warn or error)")

	return cmd
}

// runRelayWithDeps consumes the reset code queue until a signal arrives, ctx
// ends or the broker connection is lost.
func runRelayWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *RelayDeps) error {
	if deps == nil {
		deps = &RelayDeps{}
	}
	deps.setDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.RequireAMQP(); err != nil {
		return err
	}
	if err := cfg.RequireSMTP(); err != nil {
		return err
	}

	sender, err := deps.SMTPSenderFactory(smtpConfig(cfg.Delivery.SMTP))
	if err != nil {
		return oops.With("operation", "create smtp sender").Wrap(err)
	}

	relay, err := delivery.NewRelay(sender, cfg.Delivery.Timeout, delivery.WithLogger(logger))
	if err != nil {
		return err
	}

	broker, err := deps.BrokerDialer(cfg.Delivery.AMQP.URL, cfg.Delivery.AMQP.Queue)
	if err != nil {
		return oops.With("operation", "connect to broker").Wrap(err)
	}
	defer func() {
		if closeErr := broker.Close(); closeErr != nil {
			logger.Warn("error closing broker connection", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries, err := broker.Consume(ctx, relayConsumer, cfg.Delivery.AMQP.Prefetch)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("relay consuming reset codes",
		"queue", cfg.Delivery.AMQP.Queue,
		"smtp_host", cfg.Delivery.SMTP.Host)

	if err := relay.Run(ctx, deliveries); err != nil {
		return err
	}
	logger.Info("relay stopped")
	return nil
}
