package main

import (
	"context"
	"database/sql"
	"fmt"
	"gobot/haikoobot/logger"
	"io"
	"log/slog"
	"os"
	"time"

	models "gobot/haikoobot/models"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v2"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
)

var (
	kafkaWriters  map[string]models.KafkaWriter
	database      *models.PostgresRepository
	webhookCloser io.Closer
	appConfig     models.Config
)

// LoadConfig reads the JSON (or YAML) config file, applies .env and environment
// overrides for secrets, fills defaults and validates the result.
// Returns an error if reading, parsing or validation fails.
func LoadConfig(path string) error {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	var cfg models.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	applyEnvOverrides(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ProcessingDir, 0755); err != nil {
		return fmt.Errorf("error creating processing dir: %v", err)
	}

	appConfig = cfg
	return nil
}

func applyEnvOverrides(cfg *models.Config) {
	overrides := map[string]*string{
		"CV_KEY":              &cfg.CvKey,
		"CV_REGION":           &cfg.CvRegion,
		"IMAGE_ROOT_URL":      &cfg.ImageRootURL,
		"LINE_CHANNEL_TOKEN":  &cfg.LineChannelToken,
		"LINE_CHANNEL_SECRET": &cfg.LineChannelSecret,
		"PROCESSING_DIR":      &cfg.ProcessingDir,
	}
	for key, field := range overrides {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}
}

// initializeLogger sets up the structured logger (slog) for the application.
func initializeLogger() error {
	logConfig := logger.LogConfig{
		FilePath:     appConfig.Logger.FilePath,
		UseLocalTime: appConfig.Logger.UseLocalTime,
		FileMaxSize:  appConfig.Logger.FileMaxSize,
		FileMaxAge:   appConfig.Logger.FileMaxAge,
		LogLevel:     appConfig.Logger.Level,
	}

	if err := os.MkdirAll(logConfig.FilePath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level: slog.Level(logConfig.LogLevel),
	}

	log := logger.New(logConfig, opts, true)
	logger.SetLogger(log)

	return nil
}

// InitKafka creates the writers for the raw, failed and replies topics.
// Without brokers the publisher has no writers and drops everything.
func InitKafka() error {
	kafkaWriters = make(map[string]models.KafkaWriter)
	if !appConfig.KafkaEnabled() {
		logger.L().Info("Kafka disabled, no brokers configured")
		return nil
	}

	topics := map[string]string{
		models.TopicRaw:     appConfig.Kafka.Raw.Topic,
		models.TopicFailed:  appConfig.Kafka.Failed.Topic,
		models.TopicReplies: appConfig.Kafka.Replies.Topic,
	}
	for name, topic := range topics {
		kafkaWriters[name] = &kafka.Writer{
			Addr:                   kafka.TCP(appConfig.Kafka.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	}
	return nil
}

// initializeDatabase opens the haiku history database when configured.
// Returns nil, nil when Postgres is disabled.
func initializeDatabase() (*models.PostgresRepository, error) {
	if !appConfig.PostgresEnabled() {
		logger.L().Info("Postgres disabled, haiku history will not be stored")
		return nil, nil
	}

	dbPath := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		appConfig.Postgres.User,
		appConfig.Postgres.Password,
		appConfig.Postgres.Host,
		appConfig.Postgres.Port,
		appConfig.Postgres.Database,
	)

	pConnector, err := sql.Open(appConfig.Postgres.Driver, dbPath)
	if err != nil {
		logger.L().Error("Failed to open database connection with Postgres", "error", err)
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pConnector.PingContext(ctx); err != nil {
		pConnector.Close()
		logger.L().Error("Failed to ping database", "host", appConfig.Postgres.Host, "error", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	pConnector.SetMaxOpenConns(appConfig.Postgres.MaxOpenConnection)
	pConnector.SetMaxIdleConns(appConfig.Postgres.MaxIdleConnection)
	pConnector.SetConnMaxLifetime(time.Duration(appConfig.Postgres.ConnectionMaxLifeTime) * time.Minute)

	repo := &models.PostgresRepository{Db: pConnector}
	if err := repo.EnsureSchema(ctx); err != nil {
		pConnector.Close()
		return nil, err
	}
	logger.L().Info("PostgreSQL repository initialized successfully", "driver", appConfig.Postgres.Driver)

	return repo, nil
}

// Cleanup closes Kafka writers, the database pool and the webhook log.
func Cleanup(publisher *models.EventPublisher) {
	if err := publisher.Close(); err != nil {
		logger.L().Error("Issue while closing kafka writers", "error", err)
	} else {
		logger.L().Info("Kafka writers cleanup successful")
	}

	if database != nil {
		if err := database.Db.Close(); err != nil {
			logger.L().Error("Issue while closing database", "error", err)
		}
	}

	if webhookCloser != nil {
		webhookCloser.Close()
	}
}
