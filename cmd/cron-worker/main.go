package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmagedov/p2pdesk-backend/internal/assignment"
	"github.com/rmagedov/p2pdesk-backend/internal/cron"
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

const lockKeyFormat = "p2pdesk:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	jobMetrics := metrics.NewJobMetrics(registry)
	assignmentMetrics := metrics.NewAssignmentMetrics(registry)

	rosterRepo := roster.NewRepository(dbClient.DB())
	tradesRepo := trades.NewRepository(dbClient.DB())

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
		Repo:    assignment.NewRepository(dbClient.DB()),
		Roster:  rosterService,
		Logger:  logg,
		Metrics: assignmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	restTimerService, err := resttimer.NewService(resttimer.Params{
		Repo:            resttimer.NewRepository(dbClient.DB()),
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

	restTimerJob, err := cron.NewRestTimerJob(cron.RestTimerJobParams{
		Logger: logg,
		Timers: restTimerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rest timer job", err)
		os.Exit(1)
	}

	orderSyncJob, err := cron.NewOrderSyncJob(cron.OrderSyncJobParams{
		Logger: logg,
		Trades: tradesService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order sync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orderSyncJob, restTimerJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
