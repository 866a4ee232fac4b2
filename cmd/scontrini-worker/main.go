package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"scontrini/internal/amqp"
	"scontrini/internal/classify"
	"scontrini/internal/config"
	"scontrini/internal/log"
	"scontrini/internal/sheets"
	gsheet "scontrini/internal/sheets/google"
	"scontrini/internal/sheets/memory"
	"scontrini/internal/storage"
	"scontrini/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.NewFromEnv("scontrini-worker")
	log.SetDefault(logger)
	logger.Info("Starting scontrini-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("Worker requires AMQP_URL to consume ledger commits")
		os.Exit(1)
	}

	seed := storage.Seed{
		Categories: classify.DefaultCategories,
		Rules:      classify.SeedRules(),
	}
	var (
		store storage.Store
		err   error
	)
	switch cfg.DataBackend {
	case "jsonfile":
		store, err = storage.NewFile(cfg.StoreFile, seed)
	default:
		store, err = storage.NewSQLite(cfg.SQLiteDBPath, seed)
	}
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appender sheets.LedgerAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = memory.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided, mirroring to in-process memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(store, appender, logger)
	if err := mirror.Start(ctx); err != nil {
		logger.Error("Failed to record mirror baseline", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerCommitted(ctx, func(msg *amqp.LedgerCommittedMessage) error {
			return mirror.HandleCommitMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		return mirror.Run(ctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
