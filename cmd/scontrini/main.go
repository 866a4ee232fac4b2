package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scontrini/internal/amqp"
	"scontrini/internal/classify"
	"scontrini/internal/config"
	"scontrini/internal/extract"
	apphttp "scontrini/internal/http"
	"scontrini/internal/knowledge"
	"scontrini/internal/log"
	"scontrini/internal/services"
	"scontrini/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.NewFromEnv("scontrini")
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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
	logger.Info("Initialized store", "backend", cfg.DataBackend)

	// Structured extraction is optional; OCR is the baseline.
	var vision extract.ItemExtractor
	if cfg.OpenAIAPIKey != "" {
		v, err := extract.NewVisionExtractor(extract.VisionConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.ReceiptModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Error("Failed to initialize vision extractor", "error", err)
			os.Exit(1)
		}
		vision = v
		logger.Info("Structured extraction enabled", "model", cfg.ReceiptModel)
	} else {
		logger.Info("Structured extraction disabled - no OPENAI_API_KEY provided")
	}
	chain := extract.NewChain(vision, extract.NewTesseract())

	// Ledger commits are mirrored through AMQP when a broker is set.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP publishing disabled - no AMQP_URL provided")
	}

	lookup := knowledge.New(cfg.KnowledgeTimeout)
	uploads := services.NewUploadService(store, chain, lookup, publisher, cfg.UploadDir, logger)
	budgets := services.NewBudgetService(store, logger)
	resolutions := services.NewResolutionService(store, publisher, logger)

	srv := apphttp.NewServer(":"+cfg.Port, uploads, budgets, resolutions, store, cfg.MaxUploadBytes, logger)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting scontrini server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
