// Package dataset loads the sales table from a feed and keeps the normalized
// result for a fixed time window.
package dataset

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vendas/internal/cache"
	"vendas/internal/core"
	"vendas/internal/feed"
	"vendas/internal/log"
)

// DefaultTTL is how long a fetched dataset is served before refetching.
const DefaultTTL = 60 * time.Second

// Refresh describes one successful fetch.
type Refresh struct {
	Source    string
	FetchedAt time.Time
	Table     core.Table
	Records   int
	Dropped   int
}

// RefreshHandler is notified after every fresh fetch. Errors are logged and
// never reach the caller of Load.
type RefreshHandler interface {
	OnRefresh(ctx context.Context, r Refresh) error
}

type entry struct {
	ds  core.Dataset
	err error
}

// Loader fetches and normalizes the feed, caching the outcome for ttl.
type Loader struct {
	reader   feed.TableReader
	ttl      time.Duration
	now      func() time.Time
	handlers []RefreshHandler
	logger   *log.Logger

	mu    sync.RWMutex
	state cache.Stamped[entry]
	group singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(l *Loader) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithRefreshHandler registers h.
func WithRefreshHandler(h RefreshHandler) Option {
	return func(l *Loader) {
		if h != nil {
			l.handlers = append(l.handlers, h)
		}
	}
}

// WithLogger logs through logger under the dataset component.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger.WithComponent(log.ComponentDataset)
		}
	}
}

func New(reader feed.TableReader, opts ...Option) *Loader {
	l := &Loader{
		reader: reader,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: log.FromContext(context.Background()).WithComponent(log.ComponentDataset),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// TTL returns the freshness window.
func (l *Loader) TTL() time.Duration { return l.ttl }

// Source names the underlying feed.
func (l *Loader) Source() string { return l.reader.Name() }

// Load returns the normalized dataset, fetching it when the cached copy is
// older than the TTL.
//
// A fetch failure returns a *core.FetchError and leaves any cached dataset in
// place without serving it. A dataset missing its date column is cached like
// any other and returned together with its *core.MissingColumnError.
func (l *Loader) Load(ctx context.Context) (core.Dataset, error) {
	if e, ok := l.fresh(); ok {
		return e.ds, e.err
	}

	v, err, shared := l.group.Do("dataset", func() (any, error) {
		if e, ok := l.fresh(); ok {
			return e, nil
		}
		return l.fetch(context.WithoutCancel(ctx))
	})
	if err != nil {
		return core.Dataset{}, err
	}
	if shared {
		l.logger.DebugContext(ctx, "Shared in-flight dataset fetch")
	}
	e := v.(entry)
	return e.ds, e.err
}

// Ready reports whether a dataset was loaded at least once.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Has()
}

// LastFetch returns when the cached dataset was fetched.
func (l *Loader) LastFetch() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.LastFetch
}

// Invalidate marks the cached dataset stale so the next Load refetches.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = cache.Stamped[entry]{}
}

func (l *Loader) fresh() (entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.IsStale(l.now(), l.ttl) {
		return entry{}, false
	}
	return l.state.Value, true
}

func (l *Loader) fetch(ctx context.Context) (entry, error) {
	start := l.now()
	table, err := l.reader.ReadTable(ctx)
	if err != nil {
		var fe *core.FetchError
		if !errors.As(err, &fe) {
			err = &core.FetchError{Source: l.reader.Name(), Err: err}
		}
		l.logger.ErrorContext(ctx, "Dataset fetch failed",
			log.FieldSource, l.reader.Name(),
			log.FieldError, err)
		return entry{}, err
	}

	ds, nerr := core.Normalize(table)
	ds.Source = l.reader.Name()
	ds.FetchedAt = start

	l.mu.Lock()
	l.state.Store(entry{ds: ds, err: nerr}, start)
	l.mu.Unlock()

	if nerr != nil {
		l.logger.WarnContext(ctx, "Dataset is missing a required column",
			log.FieldSource, ds.Source,
			log.FieldError, nerr)
		return entry{ds: ds, err: nerr}, nil
	}

	l.logger.InfoContext(ctx, "Dataset loaded",
		log.NewFields().WithDataset(ds.Source, ds.Len(), ds.Dropped).WithOperation(log.OpFetch).Args()...)
	for _, col := range []string{core.ColRegion, core.ColCity, core.ColProduct, core.ColSalesperson, core.ColAmount} {
		if !table.HasColumn(col) {
			l.logger.WarnContext(ctx, "Dataset column absent, using empty values",
				log.FieldSource, ds.Source, "column", col)
		}
	}

	l.notify(ctx, Refresh{
		Source:    ds.Source,
		FetchedAt: start,
		Table:     table,
		Records:   ds.Len(),
		Dropped:   ds.Dropped,
	})
	return entry{ds: ds}, nil
}

func (l *Loader) notify(ctx context.Context, r Refresh) {
	for _, h := range l.handlers {
		if err := h.OnRefresh(ctx, r); err != nil {
			l.logger.WarnContext(ctx, "Refresh handler failed",
				log.FieldSource, r.Source,
				log.FieldError, err)
		}
	}
}
