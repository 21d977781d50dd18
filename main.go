package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"gobot/haikoobot/haikoo"
	"gobot/haikoobot/logger"
	models "gobot/haikoobot/models"
	"gobot/haikoobot/server"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	defaultConfig := os.Getenv("HAIKOO_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.json"
	}
	configPath := flag.String("config", defaultConfig, "path to the JSON or YAML config file")
	flag.Parse()

	// Load configuration
	if err := LoadConfig(*configPath); err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	if err := initializeLogger(); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Initialize Kafka
	if err := InitKafka(); err != nil {
		panic(fmt.Sprintf("Failed to initialize Kafka: %v", err))
	}
	publisher := models.NewEventPublisher(logger.L(), kafkaWriters)

	// Initialize database connection
	var err error
	database, err = initializeDatabase()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize database: %v", err))
	}

	defer func() {
		logger.L().Info("Shutting down application...")
		Cleanup(publisher)
	}()

	lineClient, err := models.NewLineClient(logger.L(), appConfig.LineChannelToken, appConfig.ReplyTimeout())
	if err != nil {
		panic(fmt.Sprintf("Failed to create LINE client: %v", err))
	}
	formatter, err := models.NewReplyFormatter(appConfig.ImageRootURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to create reply formatter: %v", err))
	}

	engine := haikoo.NewEngine(haikoo.NewAzureDescriber(appConfig.CvKey, appConfig.CvRegion))
	messageHandler := &models.MessageHandler{
		Logger:    logger.L(),
		Fetcher:   models.NewContentFetcher(logger.L(), lineClient, appConfig.ProcessingDir, appConfig.FetchTimeout()),
		Generator: models.NewHaikuGenerator(logger.L(), engine, appConfig.ProcessingDir, appConfig.HaikuTimeout()),
		Formatter: formatter,
		Sender:    lineClient,
		Publisher: publisher,
	}
	if database != nil {
		messageHandler.Store = database
	}
	router := models.NewRouter(logger.L(), messageHandler, publisher)

	if _, err := models.WriteFriendQRCode(logger.L(), appConfig.Logger.FilePath, appConfig.FriendURL); err != nil {
		logger.L().Warn("Unable to write add-friend QR code", "error", err)
	}

	if appConfig.RetentionEnabled() {
		janitor, err := models.NewArtifactJanitor(logger.L(), appConfig.ProcessingDir, appConfig.RetentionMaxAge(), appConfig.Retention.Schedule)
		if err != nil {
			panic(fmt.Sprintf("Failed to schedule artifact sweep: %v", err))
		}
		janitor.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			janitor.Stop(ctx)
		}()
	}

	webhookLogger, closer := logger.NewWebhookLogger(logger.LogConfig{
		FilePath:     appConfig.Logger.FilePath,
		UseLocalTime: appConfig.Logger.UseLocalTime,
	})
	webhookCloser = closer

	srv := &server.Server{
		Logger:        logger.L(),
		WebhookLogger: webhookLogger,
		Router:        router,
		Publisher:     publisher,
		ChannelSecret: appConfig.LineChannelSecret,
	}
	if database != nil {
		srv.Store = database
	}
	if appConfig.Server.ServeImages {
		srv.ImagesDir = appConfig.ProcessingDir
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: srv.Engine(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.L().Info("Starting server", "port", appConfig.Server.Port, "processing_dir", appConfig.ProcessingDir)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("Server failed", "error", err)
		}
	case sig := <-shutdown:
		logger.L().Info("Shutdown signal received, cleaning up...", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.L().Error("Graceful shutdown failed", "error", err)
			httpServer.Close()
		}
	}
}
