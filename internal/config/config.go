// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	StoreFile    string

	// Uploads
	UploadDir      string
	MaxUploadBytes int64

	// Extraction and knowledge lookup
	OpenAIAPIKey     string
	ReceiptModel     string
	OpenAIBaseURL    string
	KnowledgeTimeout time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncInterval time.Duration

	// Classifier service
	ClassifierPort  string
	ClassifierModel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/scontrini.db"),
		StoreFile:    getEnv("STORE_FILE", "./data/store.json"),

		UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		ReceiptModel:     getEnv("RECEIPT_MODEL", "gpt-4.1-mini"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		KnowledgeTimeout: getEnvDuration("KNOWLEDGE_TIMEOUT", 6*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "scontrini"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_commits"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		ClassifierPort:  getEnv("CLASSIFIER_PORT", "8090"),
		ClassifierModel: getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	for name, port := range map[string]string{"port": c.Port, "classifier port": c.ClassifierPort} {
		if p, err := strconv.Atoi(port); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			errs = append(errs, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, p))
		}
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureParentDir(c.SQLiteDBPath); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	case "jsonfile":
		if c.StoreFile == "" {
			errs = append(errs, "store file path cannot be empty when using jsonfile backend")
		} else if err := ensureParentDir(c.StoreFile); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create store file directory: %v", err))
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite jsonfile]", c.DataBackend))
	}

	if c.UploadDir == "" {
		errs = append(errs, "upload directory cannot be empty")
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Sprintf("invalid max upload bytes %d: must be at least 1", c.MaxUploadBytes))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.KnowledgeTimeout < time.Second || c.KnowledgeTimeout > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid knowledge timeout %v: must be between 1s and 1m", c.KnowledgeTimeout))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
