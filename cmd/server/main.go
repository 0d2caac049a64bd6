package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/pipeline"
	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/infrastructure/cache"
	"github.com/storesync/backend/internal/infrastructure/config"
	"github.com/storesync/backend/internal/infrastructure/intake"
	"github.com/storesync/backend/internal/infrastructure/logger"
	"github.com/storesync/backend/internal/infrastructure/persistence"
	"github.com/storesync/backend/internal/infrastructure/woocommerce"
	"github.com/storesync/backend/internal/infrastructure/worker"
	"github.com/storesync/backend/internal/interfaces/http/handler"
	"github.com/storesync/backend/internal/interfaces/http/middleware"
	"github.com/storesync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	attrRepo := persistence.NewGormAttributeRepository(db.DB)
	taskRepo := persistence.NewGormSyncTaskRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)

	// Idempotency store: Redis, with in-memory fallback for degraded starts
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Storefront gateway; default credentials cover single-tenant deployments
	var defaultGatewayConfig *woocommerce.Config
	if cfg.Storefront.IsConfigured() {
		defaultGatewayConfig = woocommerce.NewConfig(
			cfg.Storefront.BaseURL,
			cfg.Storefront.ConsumerKey,
			cfg.Storefront.ConsumerSecret,
		)
		defaultGatewayConfig.TimeoutSeconds = cfg.Storefront.TimeoutSeconds
	}
	gateway, err := woocommerce.NewGateway(defaultGatewayConfig)
	if err != nil {
		log.Fatal("Failed to create storefront gateway", zap.Error(err))
	}

	// Pipeline services
	txManager := persistence.NewGormTxManager(db.DB)
	intakeService := pipeline.NewIntakeService(itemRepo, attrRepo, txManager, log)
	resolver := pipeline.NewAttributeResolver(attrRepo, log)
	composer := pipeline.NewVariantComposer(storefront.NewPriceCalculator(), log)
	dispatcher := pipeline.NewDispatcher(gateway,
		storefront.DispatchConfig{
			ChunkSize:       cfg.Dispatcher.ProductChunkSize,
			InterChunkDelay: cfg.Dispatcher.InterChunkDelay,
		},
		storefront.DispatchConfig{
			ChunkSize:       cfg.Dispatcher.VariationChunkSize,
			InterChunkDelay: cfg.Dispatcher.InterChunkDelay,
		},
		log,
	)
	orchestrator := pipeline.NewOrchestrator(
		taskRepo, itemRepo, settingsRepo, gateway,
		resolver, composer, dispatcher,
		storefront.DefaultPolicies(), log,
	)
	syncService := pipeline.NewSyncService(intakeService, orchestrator, itemRepo, idempotencyStore, log)

	// Lane workers pull queued tasks and dispatch them to the storefront
	if cfg.Worker.Enabled {
		lanePool := worker.NewLanePool(taskRepo, orchestrator, cfg.Worker, log)
		if err := lanePool.Start(context.Background()); err != nil {
			log.Fatal("Failed to start lane workers", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := lanePool.Stop(stopCtx); err != nil {
				log.Error("Error stopping lane workers", zap.Error(err))
			}
		}()
	} else {
		log.Warn("Lane workers disabled; queued tasks will not be dispatched")
	}

	// Change intake consumer pulls ERP batches off the stream
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.Kafka.Enabled {
		consumer := intake.NewKafkaConsumer(cfg.Kafka, syncService, log)
		defer func() {
			if err := consumer.Close(); err != nil {
				log.Error("Error closing intake consumer", zap.Error(err))
			}
		}()
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("Change intake consumer exited", zap.Error(err))
			}
		}()
	}

	// HTTP engine
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middleware.SetupValidator()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning and tenant scoping)
	engine.GET("/health", healthHandler(db))

	// API routes; everything under the version prefix is tenant-scoped
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Tenant())

	syncHandler := handler.NewSyncHandler(syncService, orchestrator, log)
	settingsHandler := handler.NewSettingsHandler(settingsRepo, log)
	r.Register(syncHandler).Register(settingsHandler)
	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness and database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
