package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/arcanthyr/backend/internal/api/handlers"
	"github.com/arcanthyr/backend/internal/assist"
	"github.com/arcanthyr/backend/internal/austlii"
	"github.com/arcanthyr/backend/internal/cache/redis"
	"github.com/arcanthyr/backend/internal/clarify"
	"github.com/arcanthyr/backend/internal/llm"
	"github.com/arcanthyr/backend/internal/metrics"
	"github.com/arcanthyr/backend/internal/middleware/ratelimit"
	"github.com/arcanthyr/backend/internal/notify"
	"github.com/arcanthyr/backend/internal/relay"
	"github.com/arcanthyr/backend/internal/scheduler"
	"github.com/arcanthyr/backend/internal/storage/sqlite"
	"github.com/arcanthyr/backend/internal/summarize"
	syncpkg "github.com/arcanthyr/backend/internal/sync"
	"github.com/arcanthyr/backend/internal/vector/milvus"
	"github.com/arcanthyr/backend/pkg/config"
	appLogger "github.com/arcanthyr/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Arcanthyr API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient, err := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.TimeoutSec,
	)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		appLogger.Warn("AI operations disabled, no LLM API key configured")
		llmClient = llm.Disabled()
	} else if err != nil {
		appLogger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	austliiClient := austlii.NewClient(cfg.AustLII.BaseURL, cfg.AustLII.TimeoutSec)
	summarizer := summarize.NewSummarizer(llmClient)

	var notifier syncpkg.Notifier
	if cfg.Email.ResendAPIKey != "" {
		resendClient, err := notify.NewClient(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
		if err != nil {
			appLogger.Fatal("Failed to create email client", zap.Error(err))
		}
		notifier = resendClient
	} else {
		appLogger.Warn("Email notifications disabled, no Resend API key configured")
	}

	orchestrator := syncpkg.NewOrchestrator(austliiClient, sqliteClient, summarizer, notifier, syncpkg.Config{
		DailyLimit:   cfg.Sync.DailyLimit,
		FetchRetries: cfg.Sync.FetchRetries,
		FetchBackoff: time.Duration(cfg.Sync.FetchBackoffSec) * time.Second,
		PacingDelay:  time.Duration(cfg.Sync.PacingDelaySec) * time.Second,
		LeaseTTL:     time.Duration(cfg.Sync.LeaseTTLMinutes) * time.Minute,
		ReportTo:     cfg.Email.SyncReportTo,
	})

	legalHandler := handlers.NewLegalHandler(sqliteClient, orchestrator, summarizer)

	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		defer milvusClient.Close()

		if err := milvusClient.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure Milvus collection", zap.Error(err))
		}

		indexer := milvus.NewIndexer(milvusClient, llmClient)
		orchestrator.SetIndexer(indexer)
		legalHandler.SetVectorIndex(indexer)
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		orchestrator.SetSearchCache(redisClient)
		legalHandler.SetSearchCache(redisClient)
	}

	assistant := assist.NewAssistant(llmClient)
	relayPipeline := relay.NewPipeline(llmClient)
	clarifyAgent := clarify.NewAgent(llmClient)

	aiHandler := handlers.NewAIHandler(assistant, relayPipeline, clarifyAgent)
	syncStreamHandler := handlers.NewSyncStreamHandler(orchestrator)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	aiLimiter := ratelimit.New(ratelimit.Config{Group: "ai", MaxRequestsPerMinute: 15})
	emailLimiter := ratelimit.New(ratelimit.Config{Group: "email", MaxRequestsPerMinute: 10})
	legalLimiter := ratelimit.New(ratelimit.Config{Group: "legal", MaxRequestsPerMinute: 30})
	defer aiLimiter.Stop()
	defer emailLimiter.Stop()
	defer legalLimiter.Stop()

	ai := app.Group("/api/ai", aiLimiter.Middleware())
	ai.Post("/draft", aiHandler.HandleDraft)
	ai.Post("/next-actions", aiHandler.HandleNextActions)
	ai.Post("/weekly-review", aiHandler.HandleWeeklyReview)
	ai.Post("/axiom-relay", aiHandler.HandleAxiomRelay)
	ai.Post("/clarify-agent", aiHandler.HandleClarifyAgent)
	ai.Post("/classify", aiHandler.HandleClassify)

	legal := app.Group("/api/legal", legalLimiter.Middleware())
	legal.Post("/trigger-sync", legalHandler.HandleTriggerSync)
	legal.Get("/sync-progress", legalHandler.HandleSyncProgress)
	legal.Post("/search-cases", legalHandler.HandleSearchCases)
	legal.Post("/search-principles", legalHandler.HandleSearchPrinciples)
	legal.Post("/semantic-search", legalHandler.HandleSemanticSearch)
	legal.Post("/upload-case", legalHandler.HandleUploadCase)

	if notifier != nil {
		emailHandler := handlers.NewEmailHandler(notifier)
		email := app.Group("/api/email", emailLimiter.Middleware())
		email.Post("/send", emailHandler.HandleSend)
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sync", websocket.New(syncStreamHandler.HandleConnection))

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	app.Get("/metrics", metrics.MetricsHandler())

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()

	if cfg.Sync.ScheduleEnabled {
		syncScheduler := scheduler.New(orchestrator, time.Duration(cfg.Sync.IntervalHours)*time.Hour)
		go syncScheduler.Start(schedulerCtx)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancelScheduler()
	app.Shutdown()
	appLogger.Info("Server stopped")
}
