package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgmiddleware "github.com/eum-live/caption-pipeline/pkg/middleware"
	pkgvalidator "github.com/eum-live/caption-pipeline/pkg/validator"

	"github.com/eum-live/caption-pipeline/internal/adapter/handler"
	"github.com/eum-live/caption-pipeline/internal/adapter/repository"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/database"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/external/livekit"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/storage"
	"github.com/eum-live/caption-pipeline/internal/usecase/delivery"
	"github.com/eum-live/caption-pipeline/internal/usecase/language"
	"github.com/eum-live/caption-pipeline/internal/usecase/transcript"
	"github.com/eum-live/caption-pipeline/internal/usecase/translation"
	"github.com/eum-live/caption-pipeline/pkg/config"
	"github.com/eum-live/caption-pipeline/pkg/translate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running GORM AutoMigrate (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	} else {
		log.Println("🔄 Skipping GORM AutoMigrate; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Root context for background workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize LiveKit client
	log.Println("🎥 Initializing LiveKit client...")
	livekitClient := livekit.NewClient(
		cfg.LiveKit.URL,
		cfg.LiveKit.APIKey,
		cfg.LiveKit.APISecret,
		cfg.LiveKit.UseMock,
	)
	if cfg.LiveKit.UseMock {
		log.Println("⚠️  LiveKit running in MOCK mode (no real server needed)")
	} else {
		log.Printf("✅ LiveKit connected to: %s", cfg.LiveKit.URL)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	transcriptRepo := repository.NewTranscriptRepository(db)
	prefStore := cache.NewMemoryStore()
	defer prefStore.Close()
	prefRepo := repository.NewCachedPreferenceRepository(
		repository.NewPreferenceRepository(db),
		prefStore,
		cfg.Pipeline.PreferenceCacheTTL,
	)

	// Initialize transcript archive storage
	var archiver transcript.Archiver
	if cfg.Storage.Endpoint != "" {
		log.Println("🗄️  Initializing transcript archive storage...")
		minioClient, err := storage.NewMinIOClient(&cfg.Storage)
		if err != nil {
			log.Printf("⚠️  Transcript archiving disabled: %v", err)
		} else {
			archiver = minioClient
		}
	}

	// Initialize translation components
	log.Println("🌐 Initializing translation components...")
	contextStore := cache.NewMemoryStore()
	defer contextStore.Close()
	tracker := translation.NewContextTracker(contextStore, cfg.Pipeline.ContextWindow, cfg.Pipeline.ContextTTL)

	memoryCache := cache.NewMemoryStore()
	defer memoryCache.Close()
	translator := translation.NewCachedTranslator(
		translate.NewClient(&cfg.Translator),
		redisClient,
		memoryCache,
		cfg.Translator.CacheTTL,
		cfg.Translator.RetryInit,
		cfg.Translator.RetryMaxAge,
		logger,
	)

	// Initialize the outbound delivery queue
	log.Println("📤 Initializing delivery queue...")
	deliveryQueue := delivery.NewQueue(livekitClient, 1024, 3, logger)
	deliveryQueue.Start(ctx, 4)

	// Initialize translation orchestrator
	rosterCache := cache.NewMemoryStore()
	defer rosterCache.Close()
	orchestrator := translation.NewOrchestrator(
		livekitClient,
		prefRepo,
		translator,
		tracker,
		deliveryQueue,
		language.NewChunker(),
		rosterCache,
		cfg.Pipeline.PreferenceCacheTTL,
		logger,
	)

	// Initialize transcript buffer and service
	log.Println("📝 Initializing transcript service...")
	buffer := transcript.NewBuffer(transcriptRepo, cfg.Pipeline.FlushThreshold, cfg.Pipeline.FlushInterval, logger)
	go buffer.StartSweeper(ctx, cfg.Pipeline.SweepInterval)

	transcriptService := transcript.NewService(
		buffer,
		transcriptRepo,
		livekitClient,
		language.NewAnalyzer(),
		orchestrator,
		archiver,
		cfg.Pipeline.SessionEndTimeout,
		logger,
	)

	// Initialize caption handler
	log.Println("🚀 Initializing caption handler...")
	captionHandler := handler.NewCaptionHandler(transcriptService, prefRepo, logger)
	log.Println("✅ Caption handler initialized successfully")

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, captionHandler, pkgmiddleware.RequireSessionParticipant(livekitClient))
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	// Flush whatever is still buffered before the process exits
	for _, sessionID := range buffer.SessionIDs() {
		if _, err := transcriptService.FlushOnSessionEnd(shutdownCtx, sessionID); err != nil {
			log.Printf("⚠️  Final flush failed for session %s: %v", sessionID, err)
		}
	}

	log.Println("✅ Server stopped gracefully")
}
