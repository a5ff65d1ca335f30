package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-billing-api/api/swagger"
	"github.com/noah-isme/campus-billing-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-billing-api/internal/middleware"
	"github.com/noah-isme/campus-billing-api/internal/repository"
	"github.com/noah-isme/campus-billing-api/internal/service"
	"github.com/noah-isme/campus-billing-api/pkg/cache"
	"github.com/noah-isme/campus-billing-api/pkg/config"
	"github.com/noah-isme/campus-billing-api/pkg/database"
	"github.com/noah-isme/campus-billing-api/pkg/jobs"
	"github.com/noah-isme/campus-billing-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-billing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-billing-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-billing-api/pkg/storage"
)

// @title Campus Billing API
// @version 1.0.0
// @description Payment plans, installment allocation and overdue tracking for university events
// @BasePath /api/v1
// @schemes http

const eventCacheTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		logr.Fatal("invalid billing timezone", zap.String("timezone", cfg.Billing.Timezone), zap.Error(err))
	}
	clock := service.Clock{Now: time.Now, Location: location}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	planRepo := repository.NewPlanRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	benefitRepo := repository.NewBenefitRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	lockRepo := repository.NewLockRepository(redisClient, logr)
	events := service.NewCachedEventRegistry(repository.NewRegistryRepository(db), repository.NewCacheRepository(redisClient), eventCacheTTL, metrics, logr)

	benefitSvc := service.NewBenefitService(benefitRepo, events, validate, logr, clock)
	planSvc := service.NewPlanService(planRepo, installmentRepo, paymentRepo, statusRepo, events, benefitSvc, db, validate, metrics, logr, clock,
		service.PlanServiceConfig{MaxInstallments: cfg.Billing.MaxInstallments})
	paymentSvc := service.NewPaymentService(planRepo, installmentRepo, paymentRepo, statusRepo, events, benefitSvc, db, validate, metrics, logr, clock)
	overdueSvc := service.NewOverdueService(planRepo, installmentRepo, statusRepo, statsRepo, lockRepo, db, metrics, logr, clock,
		service.OverdueServiceConfig{LockTTL: cfg.Billing.SweepLockTTL})
	statsSvc := service.NewStatisticsService(statsRepo, planRepo, installmentRepo, statusRepo, logr, clock)
	exportSvc := service.NewExportService(statsSvc, cfg.Exports.Title, logr)

	docStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare document storage", zap.Error(err))
	}
	documentSvc := service.NewDocumentService(docStorage, storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL),
		service.DocumentConfig{
			APIPrefix:    cfg.APIPrefix,
			MaxSizeBytes: cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Documents.AllowedMIMEs,
		}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Billing.SweepEnabled {
		queue := jobs.NewQueue("overdue-sweeper", overdueSvc.SweepJobHandler(), jobs.QueueConfig{
			Workers:    cfg.Billing.SweepWorkers,
			BufferSize: 1,
			MaxRetries: cfg.Billing.SweepRetries,
			RetryDelay: 30 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		go queue.Every(ctx, cfg.Billing.SweepInterval, func() jobs.Job {
			return jobs.Job{Type: service.SweepJobType}
		})
		logr.Info("overdue sweeper scheduled", zap.Duration("interval", cfg.Billing.SweepInterval))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Plans:      handler.NewPlanHandler(planSvc, documentSvc),
		Payments:   handler.NewPaymentHandler(paymentSvc, documentSvc),
		Benefits:   handler.NewBenefitHandler(benefitSvc),
		Students:   handler.NewStudentHandler(statsSvc, planSvc, exportSvc),
		Statistics: handler.NewStatisticsHandler(statsSvc, exportSvc, overdueSvc),
		Documents:  handler.NewDocumentHandler(documentSvc),
	}, internalmiddleware.JWT(service.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.Issuer)), logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
