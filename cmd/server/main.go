package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/coursebuilder/api/internal/client"
	"github.com/coursebuilder/api/internal/config"
	"github.com/coursebuilder/api/internal/handler"
	"github.com/coursebuilder/api/internal/media"
	"github.com/coursebuilder/api/internal/service"
	"github.com/coursebuilder/api/internal/store"
	"github.com/coursebuilder/api/internal/worker"
)

// @title          Course Builder API
// @version        1.0
// @description    Turns YouTube videos and transcripts into structured French course documents.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Working directories must exist before any pipeline runs
	for _, dir := range []string{cfg.Dirs.Cache, cfg.Dirs.Uploads, cfg.Dirs.Outputs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)
	if !openaiClient.IsConfigured() {
		log.Println("Info: OpenAI not configured, pipelines will use mock output")
	}

	// Media tooling (yt-dlp / ffmpeg wrappers)
	downloader := media.NewDownloader(cfg.Pipeline.YtdlpBinary, cfg.Pipeline.CookiesFile, cfg.Dirs.Cache)
	chunker := media.NewChunker(cfg.Pipeline.FFmpegBinary, cfg.Pipeline.FFprobeBinary)

	// Services
	transcriptionService := service.NewTranscriptionService(openaiClient, chunker)
	courseService := service.NewCourseService(openaiClient)

	// Task state lives in memory only; a restart forgets every task
	taskStore := store.NewTaskStore()
	runner := worker.NewRunner(taskStore, downloader, transcriptionService, courseService, cfg.Dirs.Cache, cfg.Dirs.Outputs)

	// Handler
	courseHandler := handler.NewCourseHandler(taskStore, runner, validate, cfg.Dirs.Uploads, cfg.Dirs.Outputs, cfg.Pipeline.ChunkMinutes)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Pipeline.MaxUploadMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"openai": openaiClient.IsConfigured(),
			},
			"tasks": taskStore.Len(),
		})
	})

	// Pipeline routes
	app.Post("/process-youtube", courseHandler.ProcessYouTube)
	app.Post("/process-local", courseHandler.ProcessLocal)
	app.Get("/status/:taskId", courseHandler.Status)
	app.Get("/download/:filename", courseHandler.Download)
	app.Get("/tasks", courseHandler.Tasks)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
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

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
