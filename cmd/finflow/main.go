package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finflow/config"
	"finflow/internal/dashboard"
	"finflow/internal/source/binance"
	"finflow/internal/source/cbr"
	"finflow/internal/source/pool"
	"finflow/internal/summary"
	"finflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAgeDays); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Finflow.Name,
		"version": cfg.Finflow.Version,
	}).Info("starting finflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" || cfg.Metrics.Enabled {
		logger.StartReport(ctx, log, time.Duration(cfg.Metrics.ReportIntervalSeconds)*time.Second)
	}

	bank := cbr.NewClient(cfg.Source.Bank)
	market := binance.NewPublicClient(cfg.Source.Exchange)
	orders := binance.NewSignedClient(cfg.Source.Exchange)
	miningPool := pool.NewClient(cfg.Source.Pool)

	summarizer := summary.NewService(bank, market, orders, miningPool,
		cfg.Source.Bank.Currency, cfg.Source.Pool.Wallet)

	server := dashboard.NewServer(*cfg, bank, market, orders, miningPool, summarizer)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx)
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		log.Info("starting graceful shutdown")
		cancel()

		select {
		case <-serverErr:
		case <-time.After(30 * time.Second):
			log.Warn("graceful shutdown timeout exceeded")
		}
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("dashboard server failed")
		}
		cancel()
	}

	log.Info("finflow stopped")
}
