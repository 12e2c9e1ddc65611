package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/choresh/PspRouter-sub000/app/echo-server/router"
	"github.com/choresh/PspRouter-sub000/business/bandit"
	merchantSvc "github.com/choresh/PspRouter-sub000/business/merchant"
	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/internal/events"
	"github.com/choresh/PspRouter-sub000/internal/middleware"
	"github.com/choresh/PspRouter-sub000/internal/repository/embedding"
	"github.com/choresh/PspRouter-sub000/internal/repository/notification"
	psqlRepo "github.com/choresh/PspRouter-sub000/internal/repository/postgres"
	"github.com/choresh/PspRouter-sub000/internal/repository/predictor"
	"github.com/choresh/PspRouter-sub000/internal/repository/pspstatus"
	"github.com/choresh/PspRouter-sub000/internal/repository/reasoner"
	redisRepo "github.com/choresh/PspRouter-sub000/internal/repository/redis"
	"github.com/choresh/PspRouter-sub000/internal/rest"
	"github.com/choresh/PspRouter-sub000/pkg/config"
	"github.com/choresh/PspRouter-sub000/pkg/database"
	redisdb "github.com/choresh/PspRouter-sub000/pkg/database/redis"
	"github.com/choresh/PspRouter-sub000/pkg/logger"
	"github.com/choresh/PspRouter-sub000/pkg/metrics"
	"github.com/choresh/PspRouter-sub000/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting PSP router", "version", cfg.App.Version)

	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}

	utils.InitJWT(cfg.JWT.SecretKey)

	// Root context for the background loops, cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init repo
	decisionRepo := psqlRepo.NewDecisionRepository(db)
	outcomeRepo := psqlRepo.NewOutcomeRepository(db)
	merchantRepo := psqlRepo.NewMerchantRepository(db)
	pspRepo := psqlRepo.NewPSPProfileRepository(db)
	cfgRepo := psqlRepo.NewRouterConfigRepository(db)
	snapshotRepo := psqlRepo.NewBanditSnapshotRepository(db)
	tokenRepo := redisRepo.NewTokenRepository(redisClient)

	// Bandit engine with persisted statistics
	engine := bandit.NewEngine(snapshotRepo)
	if err := engine.LoadSnapshot(ctx); err != nil {
		logger.Warn("Failed to load bandit snapshot", "error", err)
	}

	snapshotInterval := time.Duration(cfg.Routing.SnapshotIntervalSec) * time.Second
	if snapshotInterval <= 0 {
		snapshotInterval = time.Minute
	}
	go engine.StartSnapshotLoop(ctx, snapshotInterval)

	// Optional sidecars. Each stays nil when unconfigured and the
	// routing service degrades around it.
	var reasonerClient routing.ReasonerClient
	if cfg.Reasoner.ReasonerURL != "" {
		reasonerClient = reasoner.NewReasonerRepository(
			cfg.Reasoner.ReasonerURL,
			cfg.Reasoner.ReasonerAPIKey,
			cfg.Reasoner.ReasonerModel,
			cfg.Reasoner.TimeoutMs,
			cfg.Reasoner.MaxRetries,
		)
	}

	var predictorClient routing.PredictorClient
	if cfg.Predictor.PredictorURL != "" {
		predictorClient = predictor.NewPredictorRepository(cfg.Predictor.PredictorURL, cfg.Predictor.TimeoutMs)
	}

	var healthProv routing.HealthProvider
	var feeProv routing.FeeProvider
	if cfg.PSPStatus.StatusBaseURL != "" {
		statusRepo := pspstatus.NewStatusRepository(pspstatus.StatusConfig{
			StatusBaseURL: cfg.PSPStatus.StatusBaseURL,
			StatusAPIKey:  cfg.PSPStatus.StatusAPIKey,
		})
		healthProv = statusRepo
		feeProv = statusRepo
	}

	var lessonRepo routing.LessonRepository
	var adminLessons rest.LessonStore
	if cfg.Embedding.EmbeddingURL != "" {
		embedder := embedding.NewEmbeddingRepository(cfg.Embedding.EmbeddingURL, cfg.Embedding.EmbeddingModel)
		lessonStore := redisRepo.NewLessonStore(redisClient, embedder)
		lessonRepo = lessonStore
		adminLessons = lessonStore
	}

	var notifier routing.AlertNotifier
	if cfg.Alerts.AlertsBaseURL != "" {
		notifier = notification.NewMailjetRepository(notification.AlertsConfig{
			AlertsBaseURL:           cfg.Alerts.AlertsBaseURL,
			AlertsBasicAuthUsername: cfg.Alerts.AlertsBasicAuthUsername,
			AlertsBasicAuthPassword: cfg.Alerts.AlertsBasicAuthPassword,
			AlertsSenderEmail:       cfg.Alerts.AlertsSenderEmail,
			AlertsSenderName:        cfg.Alerts.AlertsSenderName,
			AlertsRecipientEmail:    cfg.Alerts.AlertsRecipientEmail,
			AlertsRecipientName:     cfg.Alerts.AlertsRecipientName,
		})
	}

	// Init validate
	validate := validator.New()

	// Init service
	routingCfg := routing.DefaultConfig()
	routingCfg.BINKey = cfg.Routing.BINEncryptionKey
	if cfg.Routing.LessonLimit > 0 {
		routingCfg.LessonLimit = cfg.Routing.LessonLimit
	}
	if cfg.Routing.AuthRateWindowHours > 0 {
		routingCfg.AuthRateWindow = time.Duration(cfg.Routing.AuthRateWindowHours) * time.Hour
	}

	proposers := routing.BuildProposers(engine, reasonerClient, predictorClient)

	routingService := routing.NewRoutingService(
		decisionRepo,
		outcomeRepo,
		merchantRepo,
		pspRepo,
		cfgRepo,
		healthProv,
		feeProv,
		lessonRepo,
		notifier,
		engine,
		proposers,
		routingCfg,
	)

	merchantService := merchantSvc.NewMerchantService(merchantRepo, tokenRepo, validate)

	// The outcome consumer runs in-process so learning updates land in
	// this instance's engine.
	var consumer *events.OutcomeConsumer
	if cfg.Kafka.Brokers != "" {
		consumer, err = events.NewOutcomeConsumer(
			strings.Split(cfg.Kafka.Brokers, ","),
			cfg.Kafka.GroupID,
			cfg.Kafka.OutcomeTopic,
			routingService,
		)
		if err != nil {
			logger.Fatal("Failed to build outcome consumer", "error", err)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("Outcome consumer stopped", "error", err)
			}
		}()
	}

	// Init handler
	routingHandler := rest.NewRoutingHandler(routingService)
	merchantHandler := rest.NewMerchantHandler(merchantService)
	webhookHandler := rest.NewWebhookHandler(routingService, cfg.Webhook.WebhookVerificationToken)
	adminHandler := rest.NewRoutingAdminHandler(cfgRepo, pspRepo, outcomeRepo, adminLessons, engine)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Auth middleware
	authRequired := middleware.AuthMiddlewareWithRedis(merchantService)
	adminOnly := middleware.AdminOnly()

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupMerchantRoutes(api, merchantHandler, authRequired, adminOnly)
	router.SetupRoutingRoutes(api, routingHandler, authRequired)
	router.SetWebhookRoutes(api, webhookHandler)
	router.SetRoutingAdminRoutes(api, adminHandler, authRequired, adminOnly)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown server
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("Failed to close outcome consumer", "error", err)
		}
	}

	// Final export so the learned statistics survive the restart.
	if err := engine.ExportSnapshot(shutdownCtx); err != nil {
		logger.Warn("Failed to export final bandit snapshot", "error", err)
	}

	logger.Info("Server stopped")
}
