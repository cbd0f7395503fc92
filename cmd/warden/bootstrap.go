// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/config"
)

// NewBootstrapCmd creates the bootstrap subcommand.
func NewBootstrapCmd() *cobra.Command {
	return newBootstrapCmd(nil)
}

func newBootstrapCmd(deps *CommonDeps) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial user if it does not exist",
		Long: `Register a user directly against the database. An existing user is left
unchanged, so the command is safe to run on every deploy. Credentials default
to superuser.username and superuser.password from the configuration.`,
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
			if username == "" {
				username = cfg.Superuser.Username
			}
			if password == "" {
				password = cfg.Superuser.Password
			}
			if username == "" || password == "" {
				return oops.Code("CONFIG_INVALID").
					Errorf("bootstrap needs a username and password (flags or superuser.* settings)")
			}

			if err := runBootstrapWithDeps(cmd.Context(), cfg, logger, username, password, deps); err != nil {
				return err
			}
			cmd.Printf("User %q is registered\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username of the user to create")
	cmd.Flags().StringVar(&password, "password", "", "password of the user to create")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

func runBootstrapWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, username, password string, deps *CommonDeps) error {
	if deps == nil {
		deps = &CommonDeps{}
	}
	deps.setDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := deps.PoolFactory(ctx, poolConfig(cfg.Database))
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	svc, err := newService(cfg, pool, discardDispatcher{}, serviceParts{logger: logger})
	if err != nil {
		return err
	}
	return svc.Bootstrap(ctx, username, password)
}
