package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerhub/p2pcore/internal/infra"
	"github.com/ledgerhub/p2pcore/internal/outbox"
	"github.com/ledgerhub/p2pcore/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	sink, err := infra.NewPushSink(cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("create push sink: %w", err)
	}
	defer sink.Close()
	if err := sink.Ping(ctx); err != nil {
		return fmt.Errorf("ping push sink: %w", err)
	}

	audit := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer audit.Close()

	pollInterval, err := time.ParseDuration(cfg.OutboxPollInterval)
	if err != nil {
		return fmt.Errorf("parse outbox poll interval: %w", err)
	}
	if pollInterval <= 0 || pollInterval > 5*time.Second {
		pollInterval = 2 * time.Second
	}

	w := outbox.New(pool, repository.NewOutboxStore(), repository.NewUserStore(), sink, audit, pollInterval, logger)

	w.Run(ctx)
	logger.Info("outbox worker stopped")
	return nil
}
