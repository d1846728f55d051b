package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP server
	Port string

	// Remote store selection
	RemoteBackend string

	// Postgres remote
	DatabaseURL string

	// Local fallback cache
	CacheDBPath string

	// AMQP retry queue (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets remote
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Dev seeding (memory backend only)
	SeedCount int
}

const (
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
	BackendMemory   = "memory"
)

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8082"),
		RemoteBackend: getEnv("REMOTE_BACKEND", "memory"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		CacheDBPath:   getEnv("CACHE_DB_PATH", "./data/onetouch-cache.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "onetouch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "retry_remote_ops"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		SeedCount: getEnvInt("SEED_COUNT", 0),
	}
}

// Validate checks the configuration and returns a combined error when invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.RemoteBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using the postgres backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "GOOGLE_SPREADSHEET_ID is required when using the sheets backend")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid remote backend '%s': must be one of [%s %s %s]",
			c.RemoteBackend, BackendPostgres, BackendSheets, BackendMemory))
	}

	if c.CacheDBPath == "" {
		errs = append(errs, "cache database path cannot be empty")
	} else if dir := filepath.Dir(c.CacheDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create cache directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SeedCount < 0 {
		errs = append(errs, fmt.Sprintf("invalid seed count %d: must not be negative", c.SeedCount))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
