package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	mainLogFile    = "haikoo-bot-go.log"
	webhookLogFile = "webhook.log"
)

// l starts as the slog default so packages can log before start-up finishes.
var l *slog.Logger = slog.Default()

// LogConfig represents logging configuration
type LogConfig struct {
	FilePath     string
	UseLocalTime bool
	FileMaxSize  int
	FileMaxAge   int
	LogLevel     int
}

func L() *slog.Logger {
	return l
}

func rotating(cfg LogConfig, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:  filepath.Join(cfg.FilePath, name),
		LocalTime: cfg.UseLocalTime,
		MaxSize:   cfg.FileMaxSize,
		MaxAge:    cfg.FileMaxAge,
	}
}

/*
New builds the application logger: JSON records into a rotated
haikoo-bot-go.log under cfg.FilePath, optionally mirrored to stdout.

Returns:
- *slog.Logger: Not installed; pass it to SetLogger.
*/
func New(cfg LogConfig, opt *slog.HandlerOptions, writeInConsole bool) *slog.Logger {
	var out io.Writer = rotating(cfg, mainLogFile)
	if writeInConsole {
		out = io.MultiWriter(out, os.Stdout)
	}
	return slog.New(slog.NewJSONHandler(out, opt))
}

// NewWebhookLogger returns a debug text logger for raw webhook dumps, kept in
// its own small webhook.log (1 MB, 5 backups) apart from the main log.
func NewWebhookLogger(cfg LogConfig) (*slog.Logger, io.Closer) {
	cfg.FileMaxSize = 1
	cfg.FileMaxAge = 0
	fileWriter := rotating(cfg, webhookLogFile)
	fileWriter.MaxBackups = 5

	handler := slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler).With("logger", "webhook_log"), fileWriter
}

func SetLogger(logger *slog.Logger) {
	l = logger
}
