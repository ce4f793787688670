package main

import (
	"context"
	"os"

	"github.com/cemonal1/Verbfy-sub006/internal/app"
	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env must be loaded before the logger reads LOG_LEVEL and friends.
	envErr := godotenv.Load()

	appLogger := logger.NewLogger()
	defer func() { _ = appLogger.Sync() }()
	if envErr != nil && !os.IsNotExist(envErr) {
		appLogger.Warn("Failed to load .env file", zap.Error(envErr))
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load config", zap.Error(err))
	}

	application, err := app.New(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	if err := application.Run(); err != nil {
		appLogger.Fatal("Application stopped with error", zap.Error(err))
	}
}
