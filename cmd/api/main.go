package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmagedov/p2pdesk-backend/api/routes"
	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/internal/auth"
	"github.com/rmagedov/p2pdesk-backend/internal/resttimer"
	"github.com/rmagedov/p2pdesk-backend/internal/roster"
	"github.com/rmagedov/p2pdesk-backend/internal/trades"
	"github.com/rmagedov/p2pdesk-backend/pkg/binance"
	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/db"
	"github.com/rmagedov/p2pdesk-backend/pkg/logger"
	"github.com/rmagedov/p2pdesk-backend/pkg/metrics"
	"github.com/rmagedov/p2pdesk-backend/pkg/migrate"
	"github.com/rmagedov/p2pdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	exchange, err := binance.NewClient(cfg.Binance, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	assignmentMetrics := metrics.NewAssignmentMetrics(registry)

	rosterRepo := roster.NewRepository(dbClient.DB())
	tradesRepo := trades.NewRepository(dbClient.DB())
	assignmentRepo := assignment.NewRepository(dbClient.DB())
	restTimerRepo := resttimer.NewRepository(dbClient.DB())

	rosterService, err := roster.NewService(roster.Params{
		Repo:    rosterRepo,
		Tx:      dbClient,
		Claimer: tradesRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create roster service", err)
		os.Exit(1)
	}

	assignmentService, err := assignment.NewService(assignment.Params{
		Repo:    assignmentRepo,
		Roster:  rosterService,
		Logger:  logg,
		Metrics: assignmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	restTimerService, err := resttimer.NewService(resttimer.Params{
		Repo:            restTimerRepo,
		Exchange:        exchange,
		Locker:          redisClient,
		Logger:          logg,
		DurationMinutes: cfg.RestTimer.DurationMinutes,
		LockTTL:         cfg.RestTimer.StartLockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rest timer service", err)
		os.Exit(1)
	}

	tradesService, err := trades.NewService(trades.Params{
		Repo:     tradesRepo,
		Exchange: exchange,
		Assigner: assignmentService,
		Releaser: rosterService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create trades service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		OperatorRepo: rosterRepo,
		JWTConfig:    cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Auth:       authService,
			Roster:     rosterService,
			Assignment: assignmentService,
			RestTimer:  restTimerService,
			Trades:     tradesService,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
