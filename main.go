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

	"scflow/config"
	"scflow/etl"
	"scflow/logger"
	"scflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	loop := flag.Bool("loop", true, "Keep running passes until interrupted")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":   cfg.Scflow.Name,
		"version":   cfg.Scflow.Version,
		"contracts": len(cfg.Contracts),
	}).Info("starting scflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Logging.Namespace)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	var store writer.Store
	if cfg.Storage.S3.Enabled {
		store, err = writer.NewS3Store(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("failed to create S3 store")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Warn("S3 storage disabled; batches are kept in memory and lost on exit")
		store = writer.NewMemStore()
	}
	defer store.Close()

	runner := etl.NewRunner(cfg, store, *configPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	if err := runner.Run(ctx, *loop); err != nil && err != context.Canceled {
		log.WithError(err).Error("etl stopped with error")
		os.Exit(1)
	}

	log.Info("scflow stopped")
}
