package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vendas/internal/feed/csvfeed"
)

// Sales sources.
const (
	SourceCSV    = "csv"
	SourceSheets = "sheets"
	SourceMemory = "memory"
	SourceSQLite = "sqlite"
)

// ValidSources lists the accepted SALES_SOURCE values.
var ValidSources = []string{SourceCSV, SourceSheets, SourceMemory, SourceSQLite}

type Config struct {
	// HTTP Server
	Port           string
	RateLimit      int // requests per minute per client
	TrustedProxies []string

	// Sales feed
	SalesSource      string
	SalesCSVURL      string
	CacheTTL         time.Duration
	FetchTimeout     time.Duration
	PrefetchInterval time.Duration
	SeedFile         string

	// Google Sheets API
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Snapshot archive
	SQLiteDBPath      string
	SnapshotRetention int
	PruneInterval     time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		RateLimit: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		SalesSource:      getEnv("SALES_SOURCE", SourceCSV),
		SalesCSVURL:      getEnv("SALES_CSV_URL", csvfeed.DefaultURL),
		CacheTTL:         getEnvDuration("CACHE_TTL", 60*time.Second),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		PrefetchInterval: getEnvDuration("PREFETCH_INTERVAL", 0),
		SeedFile:         getEnv("SALES_SEED_FILE", "data/vendas.csv"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:         getEnv("GOOGLE_SHEET_RANGE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", ""),
		SnapshotRetention: getEnvInt("SNAPSHOT_RETENTION", 50),
		PruneInterval:     getEnvDuration("PRUNE_INTERVAL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "vendas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refresh"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ArchiveEnabled reports whether fetched tables are archived in SQLite.
func (c *Config) ArchiveEnabled() bool { return c.SQLiteDBPath != "" }

// EventsEnabled reports whether refresh events are published.
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s'", cidr))
		}
	}

	valid := false
	for _, s := range ValidSources {
		if c.SalesSource == s {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, fmt.Sprintf("invalid sales source '%s': must be one of %v", c.SalesSource, ValidSources))
	}

	switch c.SalesSource {
	case SourceCSV:
		if u, err := url.Parse(c.SalesCSVURL); err != nil || c.SalesCSVURL == "" {
			errors = append(errors, fmt.Sprintf("invalid sales CSV URL '%s'", c.SalesCSVURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid sales CSV URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case SourceMemory:
		if c.SeedFile == "" {
			errors = append(errors, "seed file is required when using memory source")
		} else if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	case SourceSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path is required when using sqlite source")
		}
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}
	if c.FetchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be positive", c.FetchTimeout))
	}
	if c.PrefetchInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid prefetch interval %v: must not be negative", c.PrefetchInterval))
	}
	if c.SnapshotRetention < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot retention %d: must be at least 1", c.SnapshotRetention))
	}

	if c.PruneInterval <= 0 {
		errors = append(errors, fmt.Sprintf("invalid prune interval %v: must be positive", c.PruneInterval))
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

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
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

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
