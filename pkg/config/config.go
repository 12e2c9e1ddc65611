package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Reasoner  ReasonerConfig
	Predictor PredictorConfig
	Embedding EmbeddingConfig
	Kafka     KafkaConfig
	PSPStatus PSPStatusConfig
	Routing   RoutingConfig
	Webhook   WebhookConfig
	Alerts    AlertsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type ReasonerConfig struct {
	ReasonerURL    string
	ReasonerAPIKey string
	ReasonerModel  string
	TimeoutMs      int
	MaxRetries     int
}

type PredictorConfig struct {
	PredictorURL string
	TimeoutMs    int
}

type EmbeddingConfig struct {
	EmbeddingURL   string
	EmbeddingModel string
}

type KafkaConfig struct {
	Brokers      string
	OutcomeTopic string
	GroupID      string
}

type PSPStatusConfig struct {
	StatusBaseURL string
	StatusAPIKey  string
}

type RoutingConfig struct {
	BINEncryptionKey    string
	SnapshotIntervalSec int
	LessonLimit         int
	AuthRateWindowHours int
}

type WebhookConfig struct {
	WebhookVerificationToken string
}

type AlertsConfig struct {
	AlertsBaseURL           string
	AlertsBasicAuthUsername string
	AlertsBasicAuthPassword string
	AlertsSenderEmail       string
	AlertsSenderName        string
	AlertsRecipientEmail    string
	AlertsRecipientName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	reasonerTimeoutMs, err := strconv.Atoi(getEnv("REASONER_TIMEOUT_MS", "1500"))
	if err != nil {
		return nil, errors.New("invalid reasoner timeout")
	}

	reasonerRetries, err := strconv.Atoi(getEnv("REASONER_MAX_RETRIES", "1"))
	if err != nil {
		return nil, errors.New("invalid reasoner max retries")
	}

	predictorTimeoutMs, err := strconv.Atoi(getEnv("PREDICTOR_TIMEOUT_MS", "300"))
	if err != nil {
		return nil, errors.New("invalid predictor timeout")
	}

	snapshotIntervalSec, err := strconv.Atoi(getEnv("SNAPSHOT_INTERVAL_SEC", "300"))
	if err != nil {
		return nil, errors.New("invalid snapshot interval")
	}

	lessonLimit, err := strconv.Atoi(getEnv("LESSON_LIMIT", "5"))
	if err != nil {
		return nil, errors.New("invalid lesson limit")
	}

	authRateWindowHours, err := strconv.Atoi(getEnv("AUTH_RATE_WINDOW_HOURS", "24"))
	if err != nil {
		return nil, errors.New("invalid auth rate window")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "PSP Router API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "psp_router"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Reasoner: ReasonerConfig{
			ReasonerURL:    getEnv("REASONER_URL", ""),
			ReasonerAPIKey: getEnv("REASONER_API_KEY", ""),
			ReasonerModel:  getEnv("REASONER_MODEL", "gpt-4o-mini"),
			TimeoutMs:      reasonerTimeoutMs,
			MaxRetries:     reasonerRetries,
		},
		Predictor: PredictorConfig{
			PredictorURL: getEnv("PREDICTOR_URL", ""),
			TimeoutMs:    predictorTimeoutMs,
		},
		Embedding: EmbeddingConfig{
			EmbeddingURL:   getEnv("EMBEDDING_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
			OutcomeTopic: getEnv("KAFKA_OUTCOME_TOPIC", "psp.transaction.outcomes"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "psp-router-outcomes"),
		},
		PSPStatus: PSPStatusConfig{
			StatusBaseURL: getEnv("PSP_STATUS_URL", ""),
			StatusAPIKey:  getEnv("PSP_STATUS_API_KEY", ""),
		},
		Routing: RoutingConfig{
			BINEncryptionKey:    getEnv("BIN_ENCRYPTION_KEY", ""),
			SnapshotIntervalSec: snapshotIntervalSec,
			LessonLimit:         lessonLimit,
			AuthRateWindowHours: authRateWindowHours,
		},
		Webhook: WebhookConfig{
			WebhookVerificationToken: getEnv("WEBHOOK_VERIFICATION_TOKEN", ""),
		},
		Alerts: AlertsConfig{
			AlertsBaseURL:           getEnv("ALERTS_BASE_URL", ""),
			AlertsBasicAuthUsername: getEnv("ALERTS_BASIC_AUTH_USERNAME", ""),
			AlertsBasicAuthPassword: getEnv("ALERTS_BASIC_AUTH_PASSWORD", ""),
			AlertsSenderEmail:       getEnv("ALERTS_SENDER_EMAIL", ""),
			AlertsSenderName:        getEnv("ALERTS_SENDER_NAME", "PSP Router"),
			AlertsRecipientEmail:    getEnv("ALERTS_RECIPIENT_EMAIL", ""),
			AlertsRecipientName:     getEnv("ALERTS_RECIPIENT_NAME", "Payments On-call"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if cfg.Routing.BINEncryptionKey == "" {
		return nil, errors.New("missing bin encryption key")
	}

	switch len(cfg.Routing.BINEncryptionKey) {
	case 16, 24, 32:
	default:
		return nil, errors.New("bin encryption key must be 16, 24, or 32 bytes")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
