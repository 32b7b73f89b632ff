package worker

import (
	"context"
	"fmt"
	"log/slog"

	"vendas/internal/amqp"
	"vendas/internal/log"
	"vendas/internal/storage"
)

// SnapshotArchive is the part of the snapshot repository the worker needs.
type SnapshotArchive interface {
	LatestSnapshot(ctx context.Context) (storage.Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// RetentionWorker trims the snapshot archive whenever a refresh is announced.
type RetentionWorker struct {
	archive SnapshotArchive
	keep    int
}

func NewRetentionWorker(archive SnapshotArchive, keep int) *RetentionWorker {
	if keep < 1 {
		keep = 1
	}
	return &RetentionWorker{archive: archive, keep: keep}
}

// HandleRefreshMessage processes a single refresh message from AMQP.
func (w *RetentionWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldSnapshotID, msg.SnapshotID,
		log.FieldSource, msg.Source,
		log.FieldRows, msg.Rows)

	if msg.SnapshotID == 0 {
		slog.DebugContext(ctx, "Refresh was not archived, nothing to prune",
			log.FieldComponent, log.ComponentWorker)
		return nil
	}
	return w.Prune(ctx)
}

// Prune applies the retention policy.
func (w *RetentionWorker) Prune(ctx context.Context) error {
	removed, err := w.archive.PruneSnapshots(ctx, w.keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot retention applied",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpPrune,
		"removed", removed,
		"keep", w.keep)
	return nil
}

// StartupCheck prunes once at startup so a backlog from downtime is applied
// before the first message arrives.
func (w *RetentionWorker) StartupCheck(ctx context.Context) error {
	latest, err := w.archive.LatestSnapshot(ctx)
	if err != nil {
		slog.InfoContext(ctx, "No snapshots archived yet",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return nil
	}
	slog.InfoContext(ctx, "Latest archived snapshot",
		log.FieldComponent, log.ComponentWorker,
		log.FieldSnapshotID, latest.ID,
		log.FieldSource, latest.Source,
		"fetched_at", latest.FetchedAt)
	return w.Prune(ctx)
}
