package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

var (
	validBackends      = []string{"memory", "sqlite", "postgres", "supabase"}
	validCurrencies    = []string{"SEK", "EUR", "USD"}
	validReceiptStores = []string{"local", "s3"}
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
)

// DatabaseConfig holds the hosted Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN, when set, overrides the individual fields.
	RawDSN string
}

// DSN returns a libpq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// URL returns the same settings as a postgres:// URL.
func (d DatabaseConfig) URL() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode)
}

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	LogFormat          string
	RateLimitPerMinute int
	TrustedProxies     []string

	// Seller details printed on invoices
	SellerName    string
	SellerAddress string
	SellerOrgNr   string

	// Invoicing
	Currency       string
	DefaultVATRate decimal.Decimal

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	Database     DatabaseConfig
	SupabaseURL  string
	SupabaseKey  string
	SupabaseUser string

	// AMQP
	AMQPURL           string
	AMQPExchange      string
	AMQPQueue         string
	AMQPReminderQueue string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncBatchSize    int
	SyncInterval     time.Duration
	ReminderSchedule string
	ReminderWindow   time.Duration

	// Receipts
	UploadDir      string
	MaxUploadBytes int64
	ReceiptStore   string
	S3Bucket       string
	S3Region       string
}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		SellerName:    getEnv("SELLER_NAME", ""),
		SellerAddress: getEnv("SELLER_ADDRESS", ""),
		SellerOrgNr:   getEnv("SELLER_ORG_NR", ""),

		Currency:       strings.ToUpper(getEnv("CURRENCY", "SEK")),
		DefaultVATRate: getEnvDecimal("DEFAULT_VAT_RATE", decimal.NewFromInt(25)),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DataDir:      dataDir,
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", filepath.Join(dataDir, "invoicer.db")),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "invoicer"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			RawDSN:   getEnv("DATABASE_DSN", ""),
		},
		SupabaseURL:  getEnv("SUPABASE_URL", ""),
		SupabaseKey:  getEnv("SUPABASE_KEY", ""),
		SupabaseUser: getEnv("SUPABASE_USER_ID", ""),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "invoicer"),
		AMQPQueue:         getEnv("AMQP_QUEUE", "invoice_sync"),
		AMQPReminderQueue: getEnv("AMQP_REMINDER_QUEUE", "invoice_reminders"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Invoices"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncBatchSize:    getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:     getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderWindow:   getEnvDuration("REMINDER_WINDOW", 7*24*time.Hour),

		UploadDir:      getEnv("UPLOAD_DIR", filepath.Join(dataDir, "receipts")),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		ReceiptStore:   getEnv("RECEIPT_STORE", "local"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "eu-north-1"),
	}

	return cfg
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if !slices.Contains(validCurrencies, c.Currency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be one of %v", c.Currency, validCurrencies))
	}
	if c.DefaultVATRate.IsNegative() || c.DefaultVATRate.GreaterThan(decimal.NewFromInt(100)) {
		errors = append(errors, fmt.Sprintf("invalid default VAT rate %s: must be between 0 and 100", c.DefaultVATRate))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.Database.RawDSN == "" {
			if c.Database.Host == "" || c.Database.DBName == "" {
				errors = append(errors, "DB_HOST and DB_NAME are required when using postgres backend without DATABASE_DSN")
			}
			if c.Database.Port < 1 || c.Database.Port > 65535 {
				errors = append(errors, fmt.Sprintf("invalid database port %d: must be between 1 and 65535", c.Database.Port))
			}
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_URL and SUPABASE_KEY are required when using supabase backend")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errors = append(errors, fmt.Sprintf("invalid Supabase URL '%s': must be an http(s) URL", c.SupabaseURL))
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
		if c.AMQPQueue == "" || c.AMQPReminderQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		} else if c.AMQPQueue == c.AMQPReminderQueue {
			errors = append(errors, "AMQP sync and reminder queues must differ")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
	}
	if c.ReminderWindow < 0 {
		errors = append(errors, fmt.Sprintf("invalid reminder window %v: must not be negative", c.ReminderWindow))
	}

	if !slices.Contains(validReceiptStores, c.ReceiptStore) {
		errors = append(errors, fmt.Sprintf("invalid receipt store '%s': must be one of %v", c.ReceiptStore, validReceiptStores))
	}
	if c.ReceiptStore == "s3" && c.S3Bucket == "" {
		errors = append(errors, "S3_BUCKET is required when RECEIPT_STORE is s3")
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether invoices should be exported.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ".")); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
