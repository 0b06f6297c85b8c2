package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salyqtech/salyq-backend/config"
	"github.com/salyqtech/salyq-backend/internal/app/controller"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/salyqtech/salyq-backend/internal/middleware"
	"github.com/salyqtech/salyq-backend/internal/parser"
	"github.com/salyqtech/salyq-backend/internal/router"
	"github.com/salyqtech/salyq-backend/internal/scheduler"
	"github.com/salyqtech/salyq-backend/internal/storage"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"github.com/salyqtech/salyq-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // в продакшене — "json"
		EnableColor: true,
	})

	logger.Info("Starting SALYQ Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis is unavailable, token revocation and consent codes are degraded", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer redis.Close()

	// repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	taxpayerRepo := repository.NewTaxpayerRepository(db.GetDB())
	sourceRepo := repository.NewSourceRecordRepository(db.GetDB())
	eventRepo := repository.NewEventRepository(db.GetDB())
	catalogRepo := repository.NewCatalogRepository(db.GetDB())
	declRepo := repository.NewDeclarationRepository(db.GetDB())
	exportRepo := repository.NewExportRepository(db.GetDB())
	rateRepo := repository.NewCurrencyRateRepository(db.GetDB())

	// services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	taxpayerService := service.NewTaxpayerService(taxpayerRepo)
	ingestService := service.NewIngestService(
		sourceRepo, eventRepo, catalogRepo, rateRepo,
		parser.NewRegistry(), db.GetDB(),
	)
	declarationService := service.NewDeclarationService(
		declRepo, taxpayerRepo, eventRepo, catalogRepo,
		service.NewRedisConsentStore(),
		service.NewSMTPMailer(&cfg.SMTP),
		otpExpiry(cfg), cfg.OTP.MaxAttempts,
		db.GetDB(),
	)
	exportService := service.NewExportService(
		declRepo, exportRepo, catalogRepo,
		storage.NewS3Archive(&cfg.Archive),
		db.GetDB(),
	)
	catalogService := service.NewCatalogService(catalogRepo)
	rateService := service.NewRateService(rateRepo, cfg.Rates.FeedURL)

	// controllers
	authController := controller.NewAuthController(authService)
	taxpayerController := controller.NewTaxpayerController(taxpayerService)
	ingestController := controller.NewIngestController(ingestService)
	declarationController := controller.NewDeclarationController(declarationService)
	exportController := controller.NewExportController(exportService)
	catalogController := controller.NewCatalogController(catalogService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	rateScheduler := scheduler.NewRateScheduler(rateService, cfg.Rates.CronSpec)
	if err := rateScheduler.Start(); err != nil {
		logger.Error("Failed to start rate scheduler", err)
	}
	defer rateScheduler.Stop()

	r := router.NewRouter(
		authController,
		taxpayerController,
		ingestController,
		declarationController,
		exportController,
		catalogController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
}

func otpExpiry(cfg *config.Config) time.Duration {
	return time.Duration(cfg.OTP.ExpiryMinutes) * time.Minute
}
