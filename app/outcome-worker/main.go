package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/internal/events"
	"github.com/choresh/PspRouter-sub000/internal/repository/embedding"
	psqlRepo "github.com/choresh/PspRouter-sub000/internal/repository/postgres"
	redisRepo "github.com/choresh/PspRouter-sub000/internal/repository/redis"
	"github.com/choresh/PspRouter-sub000/pkg/config"
	"github.com/choresh/PspRouter-sub000/pkg/database"
	redisdb "github.com/choresh/PspRouter-sub000/pkg/database/redis"
	"github.com/choresh/PspRouter-sub000/pkg/logger"
)

// The outcome worker consumes the outcome topic into its own bandit
// engine and persists the learning through snapshots. Deployments that
// run it must leave KAFKA_BROKERS unset on the API instances.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting outcome worker", "version", cfg.App.Version)

	if cfg.Kafka.Brokers == "" {
		logger.Fatal("Kafka brokers are required for the outcome worker")
	}

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	// Root context for the consumer and snapshot loops, cancelled on
	// shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init repo
	decisionRepo := psqlRepo.NewDecisionRepository(db)
	outcomeRepo := psqlRepo.NewOutcomeRepository(db)
	snapshotRepo := psqlRepo.NewBanditSnapshotRepository(db)

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

	var lessonRepo routing.LessonRepository
	if cfg.Embedding.EmbeddingURL != "" {
		redisClient, err := redisdb.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		embedder := embedding.NewEmbeddingRepository(cfg.Embedding.EmbeddingURL, cfg.Embedding.EmbeddingModel)
		lessonRepo = redisRepo.NewLessonStore(redisClient, embedder)
	}

	routingCfg := routing.DefaultConfig()
	if cfg.Routing.LessonLimit > 0 {
		routingCfg.LessonLimit = cfg.Routing.LessonLimit
	}

	// The worker only records outcomes, so the serving-side
	// dependencies stay nil.
	routingService := routing.NewRoutingService(
		decisionRepo,
		outcomeRepo,
		nil,
		nil,
		nil,
		nil,
		nil,
		lessonRepo,
		nil,
		engine,
		nil,
		routingCfg,
	)

	consumer, err := events.NewOutcomeConsumer(
		strings.Split(cfg.Kafka.Brokers, ","),
		cfg.Kafka.GroupID,
		cfg.Kafka.OutcomeTopic,
		routingService,
	)
	if err != nil {
		logger.Fatal("Failed to build outcome consumer", "error", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down outcome worker...")
		cancel()
		if err := <-done; err != nil {
			logger.Error("Outcome consumer stopped", "error", err)
		}
	case err := <-done:
		if err != nil {
			logger.Error("Outcome consumer stopped", "error", err)
		}
		cancel()
	}

	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close outcome consumer", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Final export so the learned statistics survive the restart.
	if err := engine.ExportSnapshot(shutdownCtx); err != nil {
		logger.Warn("Failed to export final bandit snapshot", "error", err)
	}

	logger.Info("Outcome worker stopped")
}
