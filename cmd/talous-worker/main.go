package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"talous/internal/amqp"
	"talous/internal/config"
	"talous/internal/log"
	"talous/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(slog.LevelInfo, log.ComponentWorker)
	log.SetDefault(logger)
	logger.Info("Starting talous-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := services.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Backend initialization failed", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer cleanup()

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without notifications", log.FieldError, err.Error())
		} else {
			defer client.Close()
			svc.Notifier = client
		}
	}

	logger.Info("Worker loops starting", "interval", cfg.ImportInterval.String())

	// Receipt imports and approvals run on independent schedules so a slow
	// receipt batch never delays approval reconciliation. Outcomes are
	// logged and published inside the workflow boundary.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop(ctx, cfg.ImportInterval, func(ctx context.Context) {
			svc.ImportReceipts(ctx)
		})
	})
	g.Go(func() error {
		return loop(ctx, cfg.ImportInterval, func(ctx context.Context) {
			svc.ApproveMerchantStaging(ctx)
			svc.ApproveUnknownMerchants(ctx)
			svc.ApproveItemStaging(ctx)
			svc.ApproveUnknownItems(ctx)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// loop runs fn immediately, then on every tick until the context ends.
func loop(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}
