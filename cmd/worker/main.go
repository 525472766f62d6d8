// Package main provides the snapshot worker entry point for the portfolio
// tracker. The worker polls the portfolio valuation on a fixed cadence and
// lets the snapshotter's interval policy decide when a history snapshot is
// written.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/pricing"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
	"github.com/portfolio-tracker/internal/worker"
)

func main() {
	log.Println("Portfolio Tracker Snapshot Worker starting...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() {
		_ = redis.Close()
	}()

	holdingRepo := storage.NewHoldingRepository(postgres)
	historyRepo := storage.NewHistoryRepository(postgres)

	priceCache := storage.NewPriceCache(redis, cfg.Pricing.CacheTTL)
	coingecko := pricing.NewCoinGeckoClient(&cfg.Pricing, logger)
	priceSource := pricing.NewCachedSource(coingecko, priceCache, logger)

	portfolioService := service.NewPortfolioService(holdingRepo, priceSource, cfg.Snapshot.ReferenceAsset, logger)
	snapshotter := service.NewSnapshotter(historyRepo, cfg.Snapshot.Interval, logger)

	snapshotWorker := worker.NewSnapshotWorker(portfolioService, snapshotter, cfg.Worker.PollInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := snapshotWorker.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start snapshot worker")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	if err := snapshotWorker.Stop(); err != nil {
		logger.WithError(err).Error("Worker shutdown failed")
	}

	logger.Info("Worker stopped")
}
