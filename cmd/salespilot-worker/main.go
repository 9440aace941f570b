// Package main runs background suggestion tasks from the asynq queue.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salespilot/salespilot-go/internal/app"
	"github.com/salespilot/salespilot-go/internal/config"
	"github.com/salespilot/salespilot-go/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != config.QueueAsynq {
		fmt.Fprintf(os.Stderr, "Error: salespilot-worker requires QUEUE_BACKEND=asynq (got %q)\n", cfg.QueueBackend)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger("worker", cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	a, err := app.New(startCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			slog.Error("failed to close dependencies", "error", err)
		}
	}()

	srv, err := queue.NewAsynqServer(cfg.RedisURL, cfg.QueueWorkers, cfg.QueueWeights, logger)
	if err != nil {
		return err
	}
	a.Worker.Register(srv)

	slog.Info("starting salespilot-worker",
		"concurrency", cfg.QueueWorkers,
		"queues", cfg.QueueWeights,
		"llm_provider", a.Provider,
	)
	return srv.Run(ctx)
}
