package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/accounts-service/internal/api"
	"github.com/99minutos/accounts-service/internal/api/handler"
	"github.com/99minutos/accounts-service/internal/core/ports"
	"github.com/99minutos/accounts-service/internal/core/service"
	"github.com/99minutos/accounts-service/internal/core/token"
	"github.com/99minutos/accounts-service/internal/infrastructure/config"
	"github.com/99minutos/accounts-service/internal/infrastructure/db/postgres"
	redisdb "github.com/99minutos/accounts-service/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts-service/internal/infrastructure/worker"
	"github.com/99minutos/accounts-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrateFirst)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrateFirst bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "accounts",
	})

	pool, err := postgres.Connect(ctx, postgresConfig(cfg.DB))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if migrateFirst {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Msg("migrations applied")
	}

	var store ports.SessionStore = postgres.NewStore(pool)
	readiness := map[string]handler.Pinger{"postgres": pool}

	if cfg.IdentityCacheEnabled() {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()

		store = redisdb.NewIdentityCache(store, rdb, cfg.Redis.IdentityCacheTTL, logger.Component("identity_cache"))
		readiness["redis"] = redisdb.Pinger{Client: rdb}
	}

	issuer, err := token.NewIssuer(cfg.PrivateKey(), cfg.PublicKey(), cfg.AccessTokenTTL())
	if err != nil {
		return err
	}

	sweeper := worker.NewSessionSweeper(store, cfg.SessionSweepInterval, logger.Component("session_sweeper"))
	sweeper.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Sessions:      service.NewSessionService(store, issuer, cfg.SessionTTL(), cfg.Auth.HashCost, logger.Component("session_service")),
		Accounts:      service.NewAccountService(store, cfg.Auth.HashCost, logger.Component("account_service")),
		Readiness:     readiness,
		SecureCookies: cfg.Auth.CookieSecure,
		Log:           logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			stop()
			sweeper.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	stop()
	sweeper.Wait()

	log.Info().Msg("server stopped")
	return nil
}
