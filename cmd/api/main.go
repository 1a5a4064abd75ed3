package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/config"
	"alfredoptarigan/cv-matcher/internal/handlers"
	"alfredoptarigan/cv-matcher/internal/progress"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := newLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	docRepo := repositories.NewDocumentRepository(db)
	analysisRepo := repositories.NewAnalysisRepository(db)
	zapLogger.Info("✅ Repositories initialized successfully")

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zapLogger.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()
	zapLogger.Info("✅ Services initialized successfully")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, zapLogger)
	if err != nil {
		zapLogger.Fatal("❌ Failed to initialize Gemini AI", zap.Error(err))
	}
	zapLogger.Info("✅ Gemini AI initialized successfully")

	// Initialize Qdrant
	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Analysis.VectorSize,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}

	if err := qdrantService.InitCollection(); err != nil {
		zapLogger.Fatal("❌ Failed to initialize Qdrant collection", zap.Error(err))
	}
	zapLogger.Info("✅ Qdrant initialized successfully")

	// Progress tracker with TTL eviction for abandoned analyses
	tracker := progress.NewTracker(cfg.Analysis.ProgressTTL, zapLogger)
	tracker.StartJanitor()

	// Extraction: LLM first, heuristic dictionary fallback when the
	// provider is down or returns garbage.
	extraction := services.NewExtractionService(
		services.NewLLMExtractor(geminiService, cfg.Worker.RetryMaxAttempts),
		services.NewHeuristicExtractor(),
		zapLogger,
	)

	embeddingService := services.NewEmbeddingService(geminiService, cfg.Analysis.VectorSize, zapLogger)

	// Initialize analyzer
	analyzerService := services.NewAnalyzerService(
		analysisRepo,
		extraction,
		embeddingService,
		qdrantService,
		tracker,
		zapLogger,
		cfg.Analysis.ProviderTimeout,
		cfg.Analysis.MinCVLength,
		cfg.Analysis.MinJobLength,
	)
	zapLogger.Info("✅ Analyzer service initialized")

	// Initialize worker
	worker := services.NewWorker(
		analysisRepo,
		analyzerService,
		cfg.Worker.Concurrency,
		zapLogger,
	)

	// Start worker
	ctx := context.Background()
	worker.Start(ctx)
	zapLogger.Info("✅ Worker started successfully")

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(
		docRepo,
		storageService,
		pdfParser,
		cfg.Storage.MaxFileSize,
	)
	analyzeHandler := handlers.NewAnalyzeHandler(
		analysisRepo,
		docRepo,
		analyzerService,
		worker,
		tracker,
	)
	resultHandler := handlers.NewResultHandler(analysisRepo, qdrantService, embeddingService)
	progressHandler := handlers.NewProgressHandler(tracker)
	zapLogger.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Matcher API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/analyze", analyzeHandler.HandleAnalyze)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/result/:id/similar", resultHandler.HandleSimilar)
	api.Get("/analyses", resultHandler.HandleHistory)
	api.Get("/progress/:id", progressHandler.HandleStream)
	api.Get("/progress/:id/snapshot", progressHandler.HandleSnapshot)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Matcher API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/analyze",
				"GET /api/v1/result/:id",
				"GET /api/v1/result/:id/similar",
				"GET /api/v1/analyses",
				"GET /api/v1/progress/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("🛑 Shutting down server...")
		worker.Stop()
		tracker.Stop()
		if err := app.Shutdown(); err != nil {
			zapLogger.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zapLogger.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
