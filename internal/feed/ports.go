package feed

import (
	"context"

	"vendas/internal/core"
)

// Ports for inbound data sources.
type (
	// TableReader fetches the full sales table from a source.
	// Implementations wrap every failure in *core.FetchError.
	TableReader interface {
		ReadTable(ctx context.Context) (core.Table, error)
		// Name identifies the source in logs and snapshots.
		Name() string
	}
)
