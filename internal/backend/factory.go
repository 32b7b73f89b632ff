package backend

import (
	"context"
	"errors"
	"fmt"

	"vendas/internal/amqp"
	"vendas/internal/feed"
	"vendas/internal/feed/csvfeed"
	"vendas/internal/feed/google"
	"vendas/internal/feed/memory"
	"vendas/internal/log"
	"vendas/internal/services"
	"vendas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new source factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Result, error) {
		_ = cleanup()
		return nil, err
	}

	if config.SQLiteDBPath != "" {
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
		}
		res.Archive = repo
		f.logger.Info("Initialized snapshot archive", "db_path", config.SQLiteDBPath)
	}

	reader, err := f.createReader(ctx, config, res.Archive)
	if err != nil {
		return fail(err)
	}
	res.Reader = reader

	// Replaying the archive must not archive or announce it again.
	if config.Type != SQLiteSource {
		var store services.SnapshotStore
		if res.Archive != nil {
			store = res.Archive
		}
		var publisher services.RefreshPublisher
		if config.AMQPURL != "" {
			client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
			if err != nil {
				f.logger.Warn("Failed to initialize AMQP client, continuing without refresh events", log.FieldError, err)
			} else {
				publisher = client
				f.logger.Info("Initialized AMQP client",
					"exchange", config.AMQPExchange,
					"queue", config.AMQPQueue)
			}
		}
		if store != nil || publisher != nil {
			res.Refresh = services.NewRefreshService(store, publisher)
			closers = append(closers, res.Refresh.Close)
		} else if res.Archive != nil {
			closers = append(closers, res.Archive.Close)
		}
	} else if res.Archive != nil {
		closers = append(closers, res.Archive.Close)
	}

	f.logger.Info("Initialized sales source",
		"source", reader.Name(),
		"archive_enabled", res.Archive != nil,
		"refresh_events", res.Refresh != nil)

	res.Cleanup = cleanup
	return res, nil
}

func (f *DefaultFactory) createReader(ctx context.Context, config Config, archive *storage.SQLiteRepository) (feed.TableReader, error) {
	switch config.Type {
	case CSVSource:
		return csvfeed.New(config.CSVURL, config.FetchTimeout), nil
	case SheetsSource:
		cli, err := google.New(ctx, google.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			Range:              config.GoogleSheetRange,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return cli, nil
	case MemorySource:
		store, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory source: %w", err)
		}
		return store, nil
	case SQLiteSource:
		if archive == nil {
			return nil, fmt.Errorf("sqlite source needs a database path")
		}
		return archive, nil
	}
	return nil, fmt.Errorf("unsupported source type: %s", config.Type)
}
