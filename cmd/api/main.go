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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peergrade-go-api/internal/config"
	"github.com/noah-isme/peergrade-go-api/internal/database"
	"github.com/noah-isme/peergrade-go-api/internal/handler"
	"github.com/noah-isme/peergrade-go-api/internal/middleware"
	"github.com/noah-isme/peergrade-go-api/internal/models"
	"github.com/noah-isme/peergrade-go-api/internal/repository"
	"github.com/noah-isme/peergrade-go-api/internal/router"
	"github.com/noah-isme/peergrade-go-api/internal/service"
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

	if err := db.AutoMigrate(
		&models.Rubric{},
		&models.Criterion{},
		&models.CriterionOption{},
		&models.Submission{},
		&models.Assessment{},
		&models.AssessmentPart{},
		&models.PeerWorkflow{},
		&models.PeerWorkflowItem{},
		&models.PeerWorkflowCancellation{},
		&models.Score{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured; rubric caching and score events over redis disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured; score event fanout over nats disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	rubricRepo := repository.NewRubricRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	workflowRepo := repository.NewPeerWorkflowRepository(db)
	scoreRepo := repository.NewScoreRepository(db)

	rubricService := service.NewRubricService(rubricRepo, redisClient, cfg.RubricCacheTTL, validate, logger)
	scorePublisher := service.NewScorePublisher(redisClient, cfg.ScoreEventTopic, natsConn, logger)
	peerService := service.NewPeerService(
		submissionRepo,
		workflowRepo,
		assessmentRepo,
		scoreRepo,
		rubricService,
		scorePublisher,
		service.Requirements{MustGrade: cfg.MustGrade, MustBeGradedBy: cfg.MustBeGradedBy},
		validate,
		logger,
	)

	submissionHandler := handler.NewSubmissionHandler(peerService, validate, logger)
	peerHandler := handler.NewPeerHandler(peerService, validate, logger)
	workflowAdminHandler := handler.NewWorkflowAdminHandler(peerService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:    submissionHandler,
		PeerHandler:          peerHandler,
		WorkflowAdminHandler: workflowAdminHandler,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
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
