package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	"github.com/fami1212/modern-e-library-hub/internal/cron"
	"github.com/fami1212/modern-e-library-hub/internal/messaging"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
	"github.com/fami1212/modern-e-library-hub/pkg/metrics"
	"github.com/fami1212/modern-e-library-hub/pkg/migrate"
	"github.com/fami1212/modern-e-library-hub/pkg/redis"
)

const lockKeyFormat = "elib:cron-worker:lock:%s"

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

	cfg.Service.Kind = "cron-worker"

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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	fineJob, err := cron.NewFineAccrualJob(cron.FineAccrualJobParams{
		Logger:     logg,
		Repository: borrowings.NewAccrualRepository(dbClient.DB()),
		Lending:    cfg.Lending,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fine accrual job", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewInventoryReconcileJob(cron.InventoryReconcileJobParams{
		Logger:     logg,
		Repository: books.NewReconcileRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory reconcile job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewConversationCleanupJob(cron.ConversationCleanupJobParams{
		Logger:     logg,
		Repository: messaging.NewCleanupRepository(dbClient.DB()),
		IdleDays:   cfg.Lending.ConversationIdleDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create conversation cleanup job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(fineJob, reconcileJob, cleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
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
