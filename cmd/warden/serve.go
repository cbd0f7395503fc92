// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/delivery"
	"github.com/wardenauth/warden/internal/httpapi"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Default values for serve command flags. They mirror config.Default and only
// document the flags; unchanged flags never override configuration.
const (
	defaultHTTPAddr    = ":8000"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
	defaultLogLevel    = "info"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication API",
		Long: `Run the HTTP API together with the reset code dispatcher, the expired
code purge loop and the metrics/health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := setupLogging(cmd, cfg.Log)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, logger, deps)
		},
	}

	cmd.Flags().String("http-addr", defaultHTTPAddr, "API listen address")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaultLogLevel, "log level (debug, info, warn or error)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

// runServeWithDeps starts every serve component with injectable dependencies
// and blocks until a signal, a server failure or ctx ends.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("starting warden",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"delivery_mode", cfg.Delivery.Mode,
		"hash_scheme", cfg.Hash.Scheme)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, poolConfig(cfg.Database))
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	parts := serviceParts{logger: logger}
	dispatchOpts := []delivery.Option{delivery.WithLogger(logger)}
	apiOpts := []httpapi.Option{httpapi.WithLogger(logger)}

	if cfg.Metrics.Addr != "" {
		obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping, logger)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopWithTimeout(logger, "observability server", obsServer.Stop)
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

		metrics := obsServer.Metrics()
		parts.metrics = metrics
		dispatchOpts = append(dispatchOpts, delivery.WithMetrics(metrics))
		apiOpts = append(apiOpts, httpapi.WithObserver(metrics))
	}

	sender, closeSender, err := deps.SenderFactory(cfg.Delivery, logger)
	if err != nil {
		return oops.With("operation", "create reset code sender").Wrap(err)
	}
	if closeSender != nil {
		defer func() {
			if err := closeSender(); err != nil {
				logger.Warn("error closing reset code sender", "error", err)
			}
		}()
	}

	dispatcher, err := delivery.NewDispatcher(sender, dispatcherConfig(cfg.Delivery), dispatchOpts...)
	if err != nil {
		return oops.With("operation", "create dispatcher").Wrap(err)
	}
	dispatcher.Start()
	// Stopped after the HTTP server so in-flight requests can still queue codes.
	defer stopWithTimeout(logger, "dispatcher", dispatcher.Stop)

	svc, err := newService(cfg, pool, dispatcher, parts)
	if err != nil {
		return err
	}

	if cfg.Superuser.Username != "" {
		if err := svc.Bootstrap(ctx, cfg.Superuser.Username, cfg.Superuser.Password); err != nil {
			return oops.With("operation", "bootstrap superuser").Wrap(err)
		}
	}

	var purgeWG sync.WaitGroup
	if cfg.Reset.PurgeInterval > 0 {
		purgeWG.Add(1)
		go func() {
			defer purgeWG.Done()
			runPurgeLoop(ctx, svc, cfg.Reset.PurgeInterval, logger)
		}()
	}
	defer purgeWG.Wait()
	defer cancel()

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           httpapi.NewRouter(svc, apiOpts...),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	apiAddr := listener.Addr().String()
	logger.Info("warden ready", "http_addr", apiAddr)
	if deps.Ready != nil {
		deps.Ready(apiAddr)
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}

	// Deferred calls stop the purge loop, then the dispatcher, the sender,
	// the observability server and the pool, in that order.
	logger.Info("shutdown complete")
	return serveErr
}

func autoMigrate(deps *ServeDeps, databaseURL string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

// runPurgeLoop deletes expired reset codes every interval until ctx ends.
func runPurgeLoop(ctx context.Context, svc *auth.Service, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredCodes(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errutil.LogErrorContext(ctx, logger, "failed to purge expired reset codes", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged expired reset codes", "count", n)
			}
		}
	}
}

// stopWithTimeout calls stop with a fresh five second deadline.
func stopWithTimeout(logger *slog.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("error stopping "+name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
