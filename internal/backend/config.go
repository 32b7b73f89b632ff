package backend

import (
	"fmt"

	"vendas/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.SalesSource)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid sales source in config: %s", appConfig.SalesSource)
	}

	return Config{
		Type: sourceType,

		CSVURL:       appConfig.SalesCSVURL,
		FetchTimeout: appConfig.FetchTimeout,
		SeedFile:     appConfig.SeedFile,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:         appConfig.GoogleSheetRange,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Type)
	}

	switch c.Type {
	case CSVSource:
		if c.CSVURL == "" {
			return fmt.Errorf("CSV URL is required for csv source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
	case MemorySource:
		if c.SeedFile == "" {
			return fmt.Errorf("seed file is required for memory source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite source")
		}
	}

	return nil
}

// SourceTypes returns all valid source types
func SourceTypes() []SourceType {
	return []SourceType{CSVSource, SheetsSource, MemorySource, SQLiteSource}
}
