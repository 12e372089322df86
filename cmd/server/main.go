package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/videomerger/api/internal/client"
	"github.com/videomerger/api/internal/config"
	"github.com/videomerger/api/internal/handler"
	"github.com/videomerger/api/internal/middleware"
	"github.com/videomerger/api/internal/service"
	"github.com/videomerger/api/internal/store"
	ws "github.com/videomerger/api/internal/websocket"
	"github.com/videomerger/api/internal/worker"
	"github.com/videomerger/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.TempDir, 0o755); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	outputStore, err := store.New(cfg.Storage.OutputDir)
	if err != nil {
		log.Fatalf("Failed to open output store: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection; async merge jobs need it, sync merges do not
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available, async merges disabled: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// External tool adapters
	downloader := client.NewYtDlpClient(cfg.Tools.YtDlp, cfg.Merge.DownloadTimeout)
	encoder := client.NewFFmpegClient(
		cfg.Tools.FFmpeg, cfg.Tools.FFprobe,
		cfg.Reels.Width, cfg.Reels.Height,
		cfg.Merge.EncodeTimeout, cfg.Merge.FinalTimeout,
	)
	filters := client.NewFilterBuilder(cfg.Tools.FontFile)

	// Initialize services
	mergeService := service.NewMergeService(downloader, encoder, filters, outputStore, cfg.Storage.TempDir, cfg.Merge)
	jobService := service.NewJobService(redisClient, asynqClient)

	// Initialize handlers
	mergeHandler := handler.NewMergeHandler(mergeService, jobService, validate)
	downloadHandler := handler.NewDownloadHandler(outputStore)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB; requests carry URLs, not media
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Video Merger API",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"POST /merge":               "Merge videos",
				"POST /merge/async":         "Queue a merge job",
				"GET /merge/status/{jobId}": "Merge job status",
				"GET /merge/result/{jobId}": "Merge job result",
				"GET /download/{filename}":  "Download merged video",
				"GET /health":               "Health check",
			},
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	// Merge routes; auth is mounted only when a secret is configured
	if cfg.Auth.JWTSecret != "" {
		authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
		app.Use("/merge", authMiddleware.Authenticate())
	}

	app.Post("/merge", rateLimiter.MergeLimit(cfg.RateLimit.MergePerHour), mergeHandler.Merge)
	app.Post("/merge/async", rateLimiter.MergeLimit(cfg.RateLimit.MergePerHour), mergeHandler.StartAsync)
	app.Get("/merge/status/:jobId", mergeHandler.Status)
	app.Get("/merge/result/:jobId", mergeHandler.Result)

	app.Get("/download/:filename", downloadHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, mergeService, jobService, hub)

	// Start the output retention sweeper
	sweeper := worker.NewSweeper(outputStore, time.Duration(cfg.Storage.RetentionHours)*time.Hour, cfg.Storage.SweepInterval)
	go sweeper.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, mergeService *service.MergeService, jobService *service.JobService, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Merge.MaxWorkers,
			Queues: map[string]int{
				service.QueueMerge: 1,
			},
		},
	)

	mergeWorker := worker.NewMergeWorker(mergeService, jobService, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeMerge, mergeWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, message)
}
