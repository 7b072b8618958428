package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"dotproduct/internal/amqp"
	"dotproduct/internal/cli"
	"dotproduct/internal/config"
	"dotproduct/internal/log"
	"dotproduct/internal/storage"
	"dotproduct/internal/worker"
)

const pruneInterval = 6 * time.Hour

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting activity-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Activity worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Activity worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return fmt.Errorf("open SQLite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.NewActivityWorker(repo, cfg.ActivityRetention, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeActivity(ctx, w.HandleActivityMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		w.RunPruner(ctx, pruneInterval)
		return nil
	})

	return g.Wait()
}
