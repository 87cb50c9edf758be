package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/codescreenhq/codescreen-api/internal/config"
	"github.com/codescreenhq/codescreen-api/internal/database"
	"github.com/codescreenhq/codescreen-api/internal/events"
	"github.com/codescreenhq/codescreen-api/internal/grading"
	"github.com/codescreenhq/codescreen-api/internal/handler"
	"github.com/codescreenhq/codescreen-api/internal/middleware"
	"github.com/codescreenhq/codescreen-api/internal/models"
	"github.com/codescreenhq/codescreen-api/internal/repository"
	"github.com/codescreenhq/codescreen-api/internal/router"
	"github.com/codescreenhq/codescreen-api/internal/service"
	"github.com/codescreenhq/codescreen-api/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Question{}, &models.TestAttempt{}, &models.SubmissionRecord{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	grader, err := grading.NewClient(grading.Config{
		BaseURL: cfg.GradingURL,
		Timeout: cfg.GradingTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create grading client: %v", err)
	}

	defaultLanguage, err := session.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		log.Fatalf("invalid default language: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	publisher := events.NewPublisher(natsConn, redisClient, cfg.EventChannel, logger)

	attemptRepo := repository.NewTestAttemptRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRecordRepository(db)

	screenService := service.NewScreenService(attemptRepo, questionRepo, submissionRepo, grader, redisClient, publisher, logger, service.ScreenConfig{
		AutosaveTTL:     cfg.AutosaveTTL,
		DefaultLanguage: defaultLanguage,
	})

	screenHandler := handler.NewScreenHandler(screenService, validate, logger)
	screenEventsHandler := handler.NewScreenEventsHandler(screenService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ScreenHandler:       screenHandler,
		ScreenEventsHandler: screenEventsHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		SubmitRateLimit:     middleware.RateLimit("submit", cfg.SubmitRateMax, cfg.SubmitRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
