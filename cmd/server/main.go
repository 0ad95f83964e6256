// Command authd-server starts the identity HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/authd/internal/config"
	"github.com/avolkov/authd/internal/migrate"
	"github.com/avolkov/authd/internal/repository"
	"github.com/avolkov/authd/internal/repository/memory"
	"github.com/avolkov/authd/internal/repository/postgres"
	httpserver "github.com/avolkov/authd/internal/server/http"
	"github.com/avolkov/authd/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, wires stores and the identity service, and runs
// the HTTP server with a periodic expiry sweeper until SIGINT/SIGTERM.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	if cfg.Auth.JWTKey == "" {
		logger.Fatal("missing jwt signing key (AUTHD_AUTH_JWTKEY)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		users    repository.UserRepository
		sessions repository.SessionRepository
		tokens   repository.ResetTokenRepository
	)
	if cfg.Database.DSN != "" {
		if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		db, err := postgres.New(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatal("postgres pool", zap.Error(err))
		}
		defer db.Close()
		users = postgres.NewUserRepo(db)
		sessions = postgres.NewSessionRepo(db)
		tokens = postgres.NewTokenRepo(db)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		users = memory.NewUserRepo()
		sessions = memory.NewSessionRepo()
		tokens = memory.NewTokenRepo()
	}

	svc := service.NewIdentityService(users, sessions, tokens, logger,
		cfg.Auth.SessionTTL, cfg.Auth.ResetTokenTTL)

	go service.NewSweeper(svc, cfg.Auth.SweepInterval, logger).Run(ctx)

	srv := httpserver.New(cfg.Server.Addr, svc, []byte(cfg.Auth.JWTKey), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
