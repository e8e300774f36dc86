package main

import (
	"context"
	"log"

	"coursekb/internal/activities"
	"coursekb/internal/app"
	"coursekb/internal/config"
	"coursekb/internal/logging"
	"coursekb/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal("dial temporal", zap.Error(err))
	}
	defer c.Close()

	deps, err := app.NewDependencies(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(deps.Ingest, logger))

	logger.Info("coursekb worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
