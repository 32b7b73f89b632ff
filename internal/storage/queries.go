package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type snapshotRow struct {
	ID           int64
	Source       string
	FetchedAt    string
	RowCount     int64
	DroppedCount int64
}

const createSnapshot = `
INSERT INTO snapshots (source, fetched_at, row_count, dropped_count, data)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateSnapshotParams struct {
	Source       string
	FetchedAt    string
	RowCount     int64
	DroppedCount int64
	Data         []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSnapshot,
		arg.Source,
		arg.FetchedAt,
		arg.RowCount,
		arg.DroppedCount,
		arg.Data,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getLatestSnapshot = `
SELECT id, source, fetched_at, row_count, dropped_count
FROM snapshots
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context) (snapshotRow, error) {
	row := q.db.QueryRowContext(ctx, getLatestSnapshot)
	var i snapshotRow
	err := row.Scan(&i.ID, &i.Source, &i.FetchedAt, &i.RowCount, &i.DroppedCount)
	return i, err
}

const getSnapshotData = `
SELECT data FROM snapshots WHERE id = ?
`

func (q *Queries) GetSnapshotData(ctx context.Context, id int64) ([]byte, error) {
	row := q.db.QueryRowContext(ctx, getSnapshotData, id)
	var data []byte
	err := row.Scan(&data)
	return data, err
}

const listSnapshots = `
SELECT id, source, fetched_at, row_count, dropped_count
FROM snapshots
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListSnapshots(ctx context.Context, limit int64) ([]snapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []snapshotRow
	for rows.Next() {
		var i snapshotRow
		if err := rows.Scan(&i.ID, &i.Source, &i.FetchedAt, &i.RowCount, &i.DroppedCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const pruneSnapshots = `
DELETE FROM snapshots
WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)
`

func (q *Queries) PruneSnapshots(ctx context.Context, keep int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, pruneSnapshots, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
