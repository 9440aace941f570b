// Package main provides the SalesPilot HTTP and realtime server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salespilot/salespilot-go/internal/app"
	"github.com/salespilot/salespilot-go/internal/config"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/server"
	"github.com/salespilot/salespilot-go/internal/service"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger("server", cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger, *wipeDB || os.Getenv("SALESPILOT_WIPE_DB") == "true"); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, wipe bool) error {
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

	if wipe {
		wipeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := a.DB.WipeData(wipeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("wipe database: %w", err)
		}
		slog.Warn("database wiped")
	}

	gateway := realtime.NewGateway(a.Registry, a.Dispatcher, realtime.NewBus(), a.Metrics, logger)
	defer gateway.Close()

	if a.MemoryQueue != nil {
		go func() {
			if err := a.MemoryQueue.Run(ctx); err != nil {
				slog.Error("memory queue stopped", "error", err)
			}
		}()
	}
	if a.Backplane != nil {
		go func() {
			if err := a.Backplane.Run(ctx); err != nil {
				slog.Error("realtime backplane stopped", "error", err)
			}
		}()
	}

	sweeper, err := service.NewSweeper(a.Calls, cfg.StaleCallSchedule, cfg.StaleCallAfter)
	if err != nil {
		return err
	}
	go func() {
		if err := sweeper.Run(ctx); err != nil {
			slog.Error("stale call sweeper stopped", "error", err)
		}
	}()

	srv := server.New(server.Deps{
		Generator:             a.Generator,
		Calls:                 a.Calls,
		Chats:                 a.Chats,
		Notifications:         a.Notifications,
		Realtime:              gateway,
		Database:              a.DB,
		Cache:                 a.Cache,
		Metrics:               a.Metrics,
		WhatsAppVerifyToken:   cfg.WhatsAppVerifyToken,
		TranscriptionCallback: cfg.TwilioTranscriptionCallback,
		Provider:              a.Provider,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("starting salespilot-server",
		"addr", addr,
		"llm_provider", a.Provider,
		"queue", cfg.QueueBackend,
		"backplane", a.Backplane != nil,
		"whatsapp", a.WhatsApp.Enabled(),
	)
	return srv.Run(ctx, addr)
}
