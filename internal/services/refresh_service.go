package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vendas/internal/amqp"
	"vendas/internal/core"
	"vendas/internal/dataset"
	"vendas/internal/log"
	"vendas/internal/storage"
)

// SnapshotStore archives fetched tables.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, source string, fetchedAt time.Time, t core.Table, dropped int) (storage.Snapshot, error)
	Close() error
}

// RefreshPublisher announces refreshed datasets.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, msg *amqp.RefreshMessage) error
	Close() error
}

// RefreshService archives every freshly fetched table and announces it.
// Either side is optional.
type RefreshService struct {
	store     SnapshotStore
	publisher RefreshPublisher
}

var _ dataset.RefreshHandler = (*RefreshService)(nil)

func NewRefreshService(store SnapshotStore, publisher RefreshPublisher) *RefreshService {
	return &RefreshService{store: store, publisher: publisher}
}

// OnRefresh archives the table first and then publishes. A failed archive
// is returned; a failed publish is only logged since the snapshot is safe.
func (s *RefreshService) OnRefresh(ctx context.Context, r dataset.Refresh) error {
	var snapshotID int64
	if s.store != nil {
		snap, err := s.store.SaveSnapshot(ctx, r.Source, r.FetchedAt, r.Table, r.Dropped)
		if err != nil {
			return fmt.Errorf("archive snapshot: %w", err)
		}
		snapshotID = snap.ID
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping refresh message",
			log.FieldComponent, log.ComponentAMQP)
		return nil
	}
	msg := amqp.NewRefreshMessage(snapshotID, r.Source, r.Records, r.Dropped, r.FetchedAt)
	if err := s.publisher.PublishRefresh(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish refresh message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldSnapshotID, snapshotID,
			log.FieldError, err)
	}
	return nil
}

// Close closes both storage and AMQP connections
func (s *RefreshService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close refresh service: %v", errs)
	}

	return nil
}
