package backend

import (
	"context"
	"time"

	"vendas/internal/feed"
	"vendas/internal/services"
	"vendas/internal/storage"
)

// SourceType selects where the sales table is read from.
type SourceType string

const (
	CSVSource    SourceType = "csv"
	SheetsSource SourceType = "sheets"
	MemorySource SourceType = "memory"
	SQLiteSource SourceType = "sqlite"
)

func (t SourceType) String() string { return string(t) }

// IsValid reports whether t is a known source.
func (t SourceType) IsValid() bool {
	switch t {
	case CSVSource, SheetsSource, MemorySource, SQLiteSource:
		return true
	}
	return false
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the wired source and its optional side services.
type Result struct {
	Reader feed.TableReader
	// Archive is nil unless a SQLite path is configured.
	Archive *storage.SQLiteRepository
	// Refresh archives and announces fresh fetches. Nil when there is
	// nothing to do.
	Refresh *services.RefreshService
	Cleanup CleanupFunc
}

// Factory creates sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type SourceType

	CSVURL       string
	FetchTimeout time.Duration
	SeedFile     string

	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
