// Package main provides the API server entry point for the portfolio tracker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portfolio-tracker/internal/api"
	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/pricing"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
)

func main() {
	log.Println("Portfolio Tracker API Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

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

	logger.Info("Database connections established")

	// Initialize repositories
	holdingRepo := storage.NewHoldingRepository(postgres)
	historyRepo := storage.NewHistoryRepository(postgres)

	// Initialize price source: CoinGecko behind the Redis quote cache
	priceCache := storage.NewPriceCache(redis, cfg.Pricing.CacheTTL)
	coingecko := pricing.NewCoinGeckoClient(&cfg.Pricing, logger)
	priceSource := pricing.NewCachedSource(coingecko, priceCache, logger)

	// Initialize services
	holdingService := service.NewHoldingService(holdingRepo)
	portfolioService := service.NewPortfolioService(holdingRepo, priceSource, cfg.Snapshot.ReferenceAsset, logger)
	snapshotter := service.NewSnapshotter(historyRepo, cfg.Snapshot.Interval, logger)

	logger.Info("Services initialized")

	// Create server
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.Server.RPS,
	}

	server := api.NewServer(serverConfig, holdingService, portfolioService, snapshotter)

	// Start server in background
	go func() {
		logger.WithFields(map[string]interface{}{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("HTTP server listening")

		if err := server.Start(); err != nil {
			logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Server stopped")
}
