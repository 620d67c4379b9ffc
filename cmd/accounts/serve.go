// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/memory"
	"github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/logging"
	"github.com/holomush/accounts/internal/observability"
	"github.com/holomush/accounts/internal/session"
	"github.com/holomush/accounts/internal/store"
	"github.com/holomush/accounts/internal/web"
	"github.com/holomush/accounts/pkg/errutil"
)

const readinessTimeout = 2 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the account HTTP API together with the observability listener
serving /metrics and the health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the service until ctx is cancelled, a shutdown
// signal arrives or a server fails. If deps is nil, defaults are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = store.Connect
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServerWithLogger(addr, ready, logger)
		}
	}
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}
	if deps.LogOutput == nil {
		deps.LogOutput = os.Stderr
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger, err := logging.Setup(logging.Options{
		Service: "accounts",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, deps.LogOutput)
	if err != nil {
		return oops.Wrapf(err, "set up logging")
	}
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	if cfg.InsecureSecret() {
		logger.Warn("using the built-in development JWT secret; set JWT_SECRET before exposing this service")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	users, ready, closeStore, err := openUserStore(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, cookies, err := buildAuth(cfg, users, logger)
	if err != nil {
		return err
	}

	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready, logger)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		defer stopObservability(obsServer, cfg.Server.ShutdownTimeout, logger)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metrics = obsServer.Metrics()
	}

	router, err := web.NewRouter(web.Options{
		Service:     svc,
		Sessions:    cookies,
		Metrics:     metrics,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return err //nolint:wrapcheck // router errors carry their own codes
	}

	listener, err := deps.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		defer close(serveErrCh)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
	}()

	cmd.Println("Accounts service started")
	logger.Info("accounts service ready",
		"addr", listener.Addr().String(),
		"store", cfg.Database.Store,
		"metrics_addr", cfg.Metrics.Addr,
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr := <-serveErrCh:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}

// openUserStore returns the configured repository, its readiness check and
// a release function.
func openUserStore(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (auth.UserRepository, observability.ReadinessChecker, func(), error) {
	if cfg.Database.Store == config.StoreMemory {
		logger.Warn("using the in-memory user store; accounts are lost on exit")
		return memory.NewUserRepository(), func() bool { return true }, func() {}, nil
	}

	opts := store.DefaultConnectOptions()
	if cfg.Database.ConnectAttempts > 0 {
		opts.MaxAttempts = cfg.Database.ConnectAttempts
	}
	opts.Logger = logger

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, opts)
	if err != nil {
		return nil, nil, nil, err //nolint:wrapcheck // connect errors carry their own codes
	}
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}

	return postgres.NewUserRepository(pool), store.Readiness(pool, readinessTimeout), pool.Close, nil
}

func applyMigrations(url string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	migrator, err := factory(url)
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own codes
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "closing migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own codes
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own codes
	}
	logger.Info("database schema up to date", "version", version)
	return nil
}

func buildAuth(cfg *config.Config, users auth.UserRepository, logger *slog.Logger) (*auth.Service, *session.CookieTransport, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // config errors carry their own codes
	}

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost,
		auth.WithMaxConcurrent(cfg.Auth.HashConcurrency),
		auth.WithHasherLogger(logger),
	)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // hasher errors carry their own codes
	}

	tokens, err := auth.NewJWTTokenService([]byte(cfg.Auth.JWTSecret), ttl)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // token errors carry their own codes
	}

	svc, err := auth.NewServiceWithLogger(users, hasher, tokens, logger)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // service errors carry their own codes
	}

	cookies, err := session.NewCookieTransport(session.CookieConfig{
		Name:   cfg.Cookie.Name,
		Secure: cfg.Cookie.Secure,
		MaxAge: session.DefaultMaxAge,
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // cookie errors carry their own codes
	}
	return svc, cookies, nil
}

func stopObservability(server ObservabilityServer, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports a failure.
// It returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
