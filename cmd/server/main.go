package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/foxxcyber/trade-basket/internal/cache"
	"github.com/foxxcyber/trade-basket/internal/catalog"
	"github.com/foxxcyber/trade-basket/internal/config"
	"github.com/foxxcyber/trade-basket/internal/database"
	"github.com/foxxcyber/trade-basket/internal/extract"
	"github.com/foxxcyber/trade-basket/internal/extract/tesseract"
	"github.com/foxxcyber/trade-basket/internal/handlers"
	"github.com/foxxcyber/trade-basket/internal/middleware"
	"github.com/foxxcyber/trade-basket/internal/services"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	appLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(appLogger)

	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL, cfg.SupplierKeySecret)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Catalog cache and rate limiter: Redis when configured, in-process otherwise
	var lookupCache cache.Cache = cache.NewMemory(cfg.CacheTTL)
	var counter middleware.WindowCounter = middleware.NewMemoryCounter()
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory cache: %v", err)
		} else {
			defer client.Close()
			lookupCache = cache.NewRedis(client, cfg.CacheTTL, cache.DefaultNamespace)
			counter = middleware.NewRedisCounter(client)
			log.Println("Redis cache connected")
		}
	}

	registry := catalog.NewRegistry(db, db, &http.Client{Timeout: cfg.LookupTimeout * 2}, appLogger)
	matcher := services.NewSupplierMatcher(services.MatcherConfig{
		Concurrency:           cfg.LookupConcurrency,
		LookupTimeout:         cfg.LookupTimeout,
		RelevanceThreshold:    cfg.RelevanceThreshold,
		MaxMatchesPerSupplier: cfg.MaxMatchesPerSupplier,
	}, lookupCache, appLogger)

	extractor := newExtractor(cfg, appLogger)
	service := services.NewComparisonService(
		services.NewMaterialsParser(cfg.MaxItems),
		matcher,
		services.NewBasketOptimiser(cfg.SavingsThreshold),
		registry,
		extractor,
		appLogger,
	)

	deps := handlers.Deps{
		Config:   cfg,
		Service:  service,
		Store:    db,
		Cache:    lookupCache,
		Catalogs: registry,
		Logger:   appLogger,
	}
	if storage := newStorage(ctx, cfg); storage != nil {
		deps.Photos = storage
		go cleanupExpiredPhotos(db, storage)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    12 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	h := handlers.New(deps)
	h.Routes(app, middleware.RateLimit(counter, cfg.RateLimitPerMinute, time.Minute, appLogger))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Warning: shutdown did not complete cleanly: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// newExtractor picks the photo text extractor. A nil result disables photo
// comparisons.
func newExtractor(cfg *config.Config, appLogger *slog.Logger) services.TextExtractor {
	switch cfg.OCREngine {
	case "openai":
		log.Printf("Photo extraction using OpenAI model %s", cfg.OpenAIModel)
		return extract.NewOpenAIVision(cfg.OpenAIAPIKey, cfg.OpenAIModel, appLogger)
	case "tesseract":
		client, err := tesseract.New()
		if err != nil {
			log.Printf("Warning: Failed to initialize OCR service, photo comparisons disabled: %v", err)
			return nil
		}
		log.Println("Photo extraction using tesseract")
		return client
	}
	log.Println("Photo extraction disabled")
	return nil
}

// newStorage returns nil when photo archival is disabled or misconfigured
func newStorage(ctx context.Context, cfg *config.Config) *services.StorageService {
	if !cfg.S3Enabled {
		log.Println("Photo storage is disabled")
		return nil
	}
	if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		log.Println("S3 credentials not configured, photo archival disabled")
		return nil
	}

	storage, err := services.NewStorageService(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL)
	if err != nil {
		log.Printf("Warning: Failed to initialize storage service: %v", err)
		return nil
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		log.Printf("Warning: Failed to ensure S3 bucket exists: %v", err)
	}
	log.Printf("Photo storage initialized (bucket %s)", storage.GetBucketName())
	return storage
}

// cleanupExpiredPhotos purges expired uploads on startup and then daily
func cleanupExpiredPhotos(db *database.DB, storage *services.StorageService) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		keys, err := db.DeleteExpiredPhotoUploads(ctx, time.Now())
		if err != nil {
			log.Printf("Warning: Failed to cleanup expired photos: %v", err)
		} else if len(keys) > 0 {
			log.Printf("Cleaned up %d expired photo(s) from database", len(keys))
			if err := storage.DeleteMultiple(ctx, keys); err != nil {
				log.Printf("Warning: Failed to delete some S3 objects: %v", err)
			} else {
				log.Printf("Deleted %d expired photo(s) from storage", len(keys))
			}
		}
		cancel()
		<-ticker.C
	}
}
