// Package config loads the process configuration from the environment.
// Everything is constructed once at startup and passed by parameter; no
// component reads the environment on its own.
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
	// Storage backend selection
	DataBackend  string // memory | sheets | sqlite
	SQLiteDBPath string

	// Google Sheets / Drive
	GoogleSpreadsheetID   string
	GoogleDriveFolderID   string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Import behaviour
	BudgetYear      int
	AmbiguityPolicy string // reject | preferLongest
	ReceiptParser   string // layout | simple
	OCRServiceURL   string
	RulesFile       string // optional YAML rule file seeding an empty rule table

	// Statement CSV column headers
	CSVDateColumn   string
	CSVEntityColumn string
	CSVAmountColumn string

	// Batch limits
	ReceiptBatchSize  int
	ReceiptTimeBudget time.Duration
	StoreCallBudget   int // -1 disables the guard

	// AMQP notifications (optional; empty URL disables)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ImportInterval time.Duration
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/talous.db"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleDriveFolderID:   getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		BudgetYear:      getEnvInt("BUDGET_YEAR", time.Now().UTC().Year()),
		AmbiguityPolicy: getEnv("AMBIGUITY_POLICY", "reject"),
		ReceiptParser:   getEnv("RECEIPT_PARSER", "layout"),
		OCRServiceURL:   getEnv("OCR_SERVICE_URL", ""),
		RulesFile:       getEnv("RULES_FILE", ""),

		CSVDateColumn:   getEnv("CSV_DATE_COLUMN", "Date of payment"),
		CSVEntityColumn: getEnv("CSV_ENTITY_COLUMN", "Location of purchase"),
		CSVAmountColumn: getEnv("CSV_AMOUNT_COLUMN", "Transaction amount"),

		ReceiptBatchSize:  getEnvInt("RECEIPT_BATCH_SIZE", 10),
		ReceiptTimeBudget: getEnvDuration("RECEIPT_TIME_BUDGET", 4*time.Minute),
		StoreCallBudget:   getEnvInt("STORE_CALL_BUDGET", -1),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "talous"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "run_summaries"),

		ImportInterval: getEnvDuration("IMPORT_INTERVAL", time.Hour),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}

		hasClientFile := c.GoogleOAuthClientFile != ""
		hasClientJSON := c.GoogleOAuthClientJSON != ""
		if !hasClientFile && !hasClientJSON {
			errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets backend")
		}

		hasTokenFile := c.GoogleOAuthTokenFile != ""
		hasTokenJSON := c.GoogleOAuthTokenJSON != ""
		if !hasTokenFile && !hasTokenJSON {
			errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets backend")
		}

		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	if c.BudgetYear < 2000 || c.BudgetYear > 2100 {
		errors = append(errors, fmt.Sprintf("invalid budget year %d: must be between 2000 and 2100", c.BudgetYear))
	}

	if c.AmbiguityPolicy != "reject" && c.AmbiguityPolicy != "preferLongest" {
		errors = append(errors, fmt.Sprintf("invalid ambiguity policy '%s': must be 'reject' or 'preferLongest'", c.AmbiguityPolicy))
	}

	if c.ReceiptParser != "layout" && c.ReceiptParser != "simple" {
		errors = append(errors, fmt.Sprintf("invalid receipt parser '%s': must be 'layout' or 'simple'", c.ReceiptParser))
	}

	if c.OCRServiceURL != "" {
		if parsedURL, err := url.Parse(c.OCRServiceURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid OCR service URL '%s': %v", c.OCRServiceURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid OCR service URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rules file does not exist: %s", c.RulesFile))
		}
	}

	if c.CSVDateColumn == "" || c.CSVEntityColumn == "" || c.CSVAmountColumn == "" {
		errors = append(errors, "CSV column names cannot be empty")
	}

	if c.ReceiptBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid receipt batch size %d: must be at least 1", c.ReceiptBatchSize))
	} else if c.ReceiptBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid receipt batch size %d: must be at most 1000", c.ReceiptBatchSize))
	}

	if c.ReceiptTimeBudget < time.Second {
		errors = append(errors, fmt.Sprintf("invalid receipt time budget %v: must be at least 1 second", c.ReceiptTimeBudget))
	}

	if c.StoreCallBudget == 0 || c.StoreCallBudget < -1 {
		errors = append(errors, fmt.Sprintf("invalid store call budget %d: must be positive or -1 to disable", c.StoreCallBudget))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ImportInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at least 1 minute", c.ImportInterval))
	} else if c.ImportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at most 24 hours", c.ImportInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
