// ====================================
// File: cmd/novadash/main.go
// ====================================
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/novasniper/novadash/internal/app"
	"github.com/novasniper/novadash/internal/config"
	applog "github.com/novasniper/novadash/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("configs/config.json")
	if err != nil {
		bootstrap, _ := zap.NewDevelopment()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	logger, ring := applog.New(cfg.DebugLogging, cfg.LogBufferSize)
	defer logger.Sync()
	logger.Info("Starting novadash")

	runner := app.NewRunner(cfg, logger, ring)
	if err := runner.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize dashboard", zap.Error(err))
		os.Exit(1)
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("Dashboard execution error", zap.Error(err))
		os.Exit(1)
	}
}
