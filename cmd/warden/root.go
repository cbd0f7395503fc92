// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Warden CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Warden - password authentication service",
		Long: `Warden issues bearer tokens for username/password accounts and runs
an email-based password reset flow backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/warden/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBootstrapCmd())
	cmd.AddCommand(NewRelayCmd())

	return cmd
}

// loadConfig reads the configuration for cmd, letting its changed flags
// override file and environment values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:  configFile,
		Flags: cmd.Flags(),
	})
	if err != nil {
		return nil, oops.With("operation", "load configuration").Wrap(err)
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default. Logs go to
// the command's stderr so tests can capture them.
func setupLogging(cmd *cobra.Command, cfg config.LogConfig) (*slog.Logger, error) {
	logger, err := logging.SetDefault(logging.Options{
		Service: "warden",
		Version: version,
		Format:  cfg.Format,
		Level:   cfg.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, oops.With("operation", "set up logging").Wrap(err)
	}
	return logger, nil
}
