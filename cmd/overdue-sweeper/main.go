// Command overdue-sweeper runs one overdue sweep and exits. It is meant for cron style schedulers.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-billing-api/internal/repository"
	"github.com/noah-isme/campus-billing-api/internal/service"
	"github.com/noah-isme/campus-billing-api/pkg/cache"
	"github.com/noah-isme/campus-billing-api/pkg/config"
	"github.com/noah-isme/campus-billing-api/pkg/database"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
	"github.com/noah-isme/campus-billing-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	os.Exit(run(cfg, logr))
}

func run(cfg *config.Config, logr *zap.Logger) int {
	defer logr.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		logr.Error("invalid billing timezone", zap.String("timezone", cfg.Billing.Timezone), zap.Error(err))
		return 1
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Error("failed to connect database", zap.Error(err))
		return 1
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Error("failed to connect redis", zap.Error(err))
		return 1
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	sweeper := service.NewOverdueService(
		repository.NewPlanRepository(db),
		repository.NewInstallmentRepository(db),
		repository.NewStatusRepository(db),
		repository.NewStatisticsRepository(db),
		repository.NewLockRepository(redisClient, logr),
		db,
		nil,
		logr,
		service.Clock{Now: time.Now, Location: location},
		service.OverdueServiceConfig{LockTTL: cfg.Billing.SweepLockTTL},
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Billing.SweepLockTTL)
	defer cancel()

	marked, err := sweeper.Sweep(ctx)
	switch {
	case errors.Is(err, appErrors.ErrLockNotAcquired):
		logr.Info("overdue sweep already running elsewhere")
		return 0
	case err != nil:
		logr.Error("overdue sweep failed", zap.Error(err))
		return 1
	}
	logr.Info("overdue sweep finished", zap.Int("transitioned", len(marked)))
	return 0
}
