package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// Ledger store
	Backend    string `env:"LEDGER_BACKEND"     envDefault:"csv"`
	CSVPath    string `env:"LEDGER_CSV_PATH"    envDefault:"data.csv"`
	SQLitePath string `env:"LEDGER_SQLITE_PATH" envDefault:"./data/ledger.db"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP surface of the bot process
	HTTPPort string `env:"HTTP_PORT" envDefault:"8081"`

	// Telegram
	TelegramToken     string  `env:"TELEGRAM_TOKEN"`
	TelegramTokenFile string  `env:"TELEGRAM_TOKEN_FILE" envDefault:"tk.txt"`
	AllowedChats      []int64 `env:"TELEGRAM_ALLOWED_CHATS" envSeparator:","`
	BotRatePerMinute  int     `env:"BOT_RATE_PER_MINUTE" envDefault:"30"`

	// AMQP; an empty URL disables event publishing
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"bisky"`
	AMQPQueue    string `env:"AMQP_QUEUE"    envDefault:"ledger_events"`

	// Google Sheets mirror
	GoogleSpreadsheetID       string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName           string `env:"GOOGLE_SHEET_NAME" envDefault:"Ledger"`
	GoogleServiceAccountJSON  string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile  string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleApplicationCredFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Worker; an empty metrics port disables its /metrics listener
	SyncInterval      time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	WorkerMetricsPort string        `env:"WORKER_METRICS_PORT"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.HTTPPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.HTTPPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendCSV, BackendSQLite, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.Backend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.Backend, validBackends))
	}

	switch c.Backend {
	case BackendCSV:
		if strings.TrimSpace(c.CSVPath) == "" {
			errors = append(errors, "CSV path cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLitePath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
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

	if c.BotRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid bot rate %d: must be at least 1 per minute", c.BotRatePerMinute))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings only the sheets worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided")
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ResolveTelegramToken returns TELEGRAM_TOKEN, or the first line of the
// token file when the variable is unset.
func (c *Config) ResolveTelegramToken() (string, error) {
	if tok := strings.TrimSpace(c.TelegramToken); tok != "" {
		return tok, nil
	}
	if c.TelegramTokenFile == "" {
		return "", fmt.Errorf("telegram token not configured")
	}
	raw, err := os.ReadFile(c.TelegramTokenFile)
	if err != nil {
		return "", fmt.Errorf("read telegram token file: %w", err)
	}
	line, _, _ := strings.Cut(string(raw), "\n")
	if tok := strings.TrimSpace(line); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("telegram token file %s is empty", c.TelegramTokenFile)
}

// ChatAllowed reports whether the bot may answer chatID. An empty
// allow-list admits everyone.
func (c *Config) ChatAllowed(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
