package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/clients/woocommerce"
	"profit-sync-service/internal/config"
	"profit-sync-service/internal/database"
	"profit-sync-service/internal/events"
	"profit-sync-service/internal/handlers"
	"profit-sync-service/internal/repository"
	"profit-sync-service/internal/secrets"
	"profit-sync-service/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := newLogger(cfg)
	log := logger.WithField("component", "main")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Warn("Auto-migration failed")
	}
	log.Info("Database models migrated")

	// Redis is optional: without it summaries are not cached and the sync
	// lock is process-local
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Failed to parse Redis URL, continuing without Redis")
		} else {
			redisClient = redis.NewClient(opt)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.WithError(err).Warn("Failed to connect to Redis, continuing without Redis")
				redisClient = nil
			} else {
				log.Info("Connected to Redis")
			}
			cancel()
		}
	}

	// Initialize GCP Secret Manager
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize GCP Secret Manager, credentials will be stored inline")
			secretManager = nil
		} else {
			log.Info("GCP Secret Manager initialized")
			defer secretManager.Close()
		}
	}

	publisher, err := events.NewPublisher(cfg.EventsBackend, cfg.NATSURL, cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize events publisher, events disabled")
		publisher = events.NopPublisher{}
	}
	defer publisher.Close()

	// Initialize repositories
	websiteRepo := repository.NewWebsiteRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	costRepo := repository.NewCostRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	syncRepo := repository.NewSyncRepository(db)
	reportRepo := repository.NewReportRepository(db, redisClient, cfg.ReportCacheTTL)

	clientOpts := woocommerce.Options{
		Timeout:   cfg.WooRequestTimeout,
		RateLimit: cfg.WooRateLimit,
	}
	newClient := func(creds clients.Credentials) (clients.CatalogClient, error) {
		client, err := woocommerce.NewClient(creds, clientOpts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// Initialize services
	auditService := services.NewAuditService(db)
	websiteService := services.NewWebsiteService(websiteRepo, newClient, auditService, logger.WithField("service", "profit-sync"))
	if secretManager != nil {
		websiteService.SetSecretStore(secretManager)
	}
	costLedger := services.NewCostLedger(costRepo, catalogRepo, auditService, logger.WithField("service", "profit-sync"))
	catalogReconciler := services.NewCatalogReconciler(catalogRepo, cfg.SyncPageSize, logger.WithField("service", "profit-sync"))
	orderReconciler := services.NewOrderReconciler(orderRepo, catalogRepo, costLedger, logger.WithField("service", "profit-sync"))
	syncTracker := services.NewSyncTracker(syncRepo)

	syncService := services.NewSyncService(
		websiteRepo,
		syncTracker,
		catalogReconciler,
		orderReconciler,
		websiteService,
		newClient,
		services.SyncConfig{
			PageSize:          cfg.SyncPageSize,
			PageDelay:         cfg.SyncPageDelay,
			Timeout:           cfg.SyncTimeout,
			OrderLookbackDays: cfg.OrderLookbackDays,
		},
		logger.WithField("service", "profit-sync"),
	)
	syncService.SetEventPublisher(publisher)
	syncService.SetReportCache(reportRepo)
	if redisClient != nil {
		syncService.SetLocker(services.NewChainedLocker(
			services.NewWebsiteSemaphore(),
			services.NewRedisSyncLock(redisClient, cfg.SyncLockTTL, logger.WithField("service", "profit-sync")),
		))
	}

	catalogService := services.NewCatalogService(catalogRepo, websiteRepo)
	reportService := services.NewReportService(reportRepo, auditService, logger.WithField("service", "profit-sync"))

	var scheduler *services.SyncScheduler
	if cfg.SyncSchedule != "" {
		scheduler = services.NewSyncScheduler(websiteRepo, syncService, logger.WithField("service", "profit-sync"))
		if err := scheduler.Start(cfg.SyncSchedule); err != nil {
			log.WithError(err).Error("Scheduled sync disabled")
			scheduler = nil
		}
	}

	router := handlers.NewRouter(logger, cfg.CORSAllowedOrigins, handlers.Handlers{
		Health:  handlers.NewHealthHandler(db),
		Website: handlers.NewWebsiteHandler(websiteService),
		Catalog: handlers.NewCatalogHandler(catalogService),
		Sync:    handlers.NewSyncHandler(syncService, syncTracker),
		Cost:    handlers.NewCostHandler(costLedger),
		Report:  handlers.NewReportHandler(reportService),
		Audit:   handlers.NewAuditHandler(auditService),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
		}).Info("Profit sync service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down profit-sync-service...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if redisClient != nil {
		redisClient.Close()
	}
	log.Info("Profit sync service stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
