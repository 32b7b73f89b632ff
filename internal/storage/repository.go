// Package storage archives fetched sales tables in SQLite so the dashboard
// can replay the last good copy when the live feed is unavailable.
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"vendas/internal/core"
	"vendas/internal/feed"
	"vendas/internal/feed/csvfeed"
	"vendas/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when the archive is empty.
var ErrNoSnapshot = errors.New("no snapshot archived")

// Snapshot describes one archived table.
type Snapshot struct {
	ID        int64
	Source    string
	FetchedAt time.Time
	Rows      int
	Dropped   int
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ feed.TableReader = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Snapshot archive ready",
		log.FieldComponent, log.ComponentStorage,
		"path", dbPath,
		"schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSnapshot archives t as fetched from source at fetchedAt.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, source string, fetchedAt time.Time, t core.Table, dropped int) (Snapshot, error) {
	var buf bytes.Buffer
	if err := csvfeed.Encode(&buf, t.Columns, t.Rows); err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	id, err := r.queries.CreateSnapshot(ctx, CreateSnapshotParams{
		Source:       source,
		FetchedAt:    fetchedAt.UTC().Format(time.RFC3339Nano),
		RowCount:     int64(len(t.Rows)),
		DroppedCount: int64(dropped),
		Data:         buf.Bytes(),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot archived",
		log.FieldComponent, log.ComponentStorage,
		log.FieldSnapshotID, id,
		log.FieldSource, source,
		log.FieldRows, len(t.Rows))

	return Snapshot{
		ID:        id,
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
		Rows:      len(t.Rows),
		Dropped:   dropped,
	}, nil
}

// LatestSnapshot returns the most recently archived snapshot.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	row, err := r.queries.GetLatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}
	return toSnapshot(row)
}

// ListSnapshots returns up to limit snapshots, newest first.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListSnapshots(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SnapshotTable decodes the table archived under id.
func (r *SQLiteRepository) SnapshotTable(ctx context.Context, id int64) (core.Table, error) {
	data, err := r.queries.GetSnapshotData(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Table{}, ErrNoSnapshot
		}
		return core.Table{}, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	t, err := csvfeed.Decode(bytes.NewReader(data))
	if err != nil {
		return core.Table{}, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	return t, nil
}

// PruneSnapshots keeps the newest keep snapshots and deletes the rest.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	n, err := r.queries.PruneSnapshots(ctx, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Snapshots pruned",
			log.FieldComponent, log.ComponentStorage,
			"removed", n,
			"kept", keep)
	}
	return n, nil
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// ReadTable replays the latest archived snapshot.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (core.Table, error) {
	s, err := r.LatestSnapshot(ctx)
	if err != nil {
		return core.Table{}, &core.FetchError{Source: r.Name(), Err: err}
	}
	t, err := r.SnapshotTable(ctx, s.ID)
	if err != nil {
		return core.Table{}, &core.FetchError{Source: r.Name(), Err: err}
	}
	return t, nil
}

func toSnapshot(row snapshotRow) (Snapshot, error) {
	fetchedAt, err := time.Parse(time.RFC3339Nano, row.FetchedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse fetched_at of snapshot %d: %w", row.ID, err)
	}
	return Snapshot{
		ID:        row.ID,
		Source:    row.Source,
		FetchedAt: fetchedAt,
		Rows:      int(row.RowCount),
		Dropped:   int(row.DroppedCount),
	}, nil
}
