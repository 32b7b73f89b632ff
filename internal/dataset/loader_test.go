package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vendas/internal/core"
)

type countingReader struct {
	mu    sync.Mutex
	table core.Table
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (r *countingReader) Name() string { return "fake" }

func (r *countingReader) ReadTable(ctx context.Context) (core.Table, error) {
	r.calls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table, r.err
}

func (r *countingReader) set(t core.Table, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table, r.err = t, err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingHandler struct {
	got []Refresh
	err error
}

func (h *recordingHandler) OnRefresh(_ context.Context, r Refresh) error {
	h.got = append(h.got, r)
	return h.err
}

func salesTable(rows ...[]string) core.Table {
	return core.Table{
		Columns: []string{"Data", "Regional", "Cidade", "Produto", "Vendedor", "Valor"},
		Rows:    rows,
	}
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLoadCachesWithinTTL(t *testing.T) {
	r := &countingReader{table: salesTable([]string{"05/01/2024", "North", "X", "A", "Ana", "100"})}
	clk := newClock()
	l := New(r, WithClock(clk.Now))

	ds, err := l.Load(context.Background())
	if err != nil || ds.Len() != 1 {
		t.Fatalf("first load: len=%d err=%v", ds.Len(), err)
	}
	if ds.Source != "fake" || !ds.FetchedAt.Equal(clk.Now()) {
		t.Fatalf("unexpected stamp: %q %v", ds.Source, ds.FetchedAt)
	}

	clk.Advance(30 * time.Second)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := r.calls.Load(); n != 1 {
		t.Fatalf("expected 1 fetch within ttl, got %d", n)
	}

	clk.Advance(30 * time.Second)
	r.set(salesTable(
		[]string{"05/01/2024", "North", "X", "A", "Ana", "100"},
		[]string{"06/01/2024", "South", "Y", "B", "Bia", "50"},
	), nil)
	ds, err = l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := r.calls.Load(); n != 2 || ds.Len() != 2 {
		t.Fatalf("expected refetch at ttl: calls=%d len=%d", n, ds.Len())
	}
}

func TestLoadFetchErrorLeavesCacheUntouched(t *testing.T) {
	r := &countingReader{table: salesTable([]string{"05/01/2024", "North", "X", "A", "Ana", "100"})}
	clk := newClock()
	l := New(r, WithClock(clk.Now), WithTTL(time.Minute))

	first, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	clk.Advance(2 * time.Minute)
	r.set(core.Table{}, errors.New("connection refused"))
	ds, err := l.Load(context.Background())
	if !errors.Is(err, core.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !ds.Empty() {
		t.Fatal("stale data must not be served on fetch error")
	}
	if !l.LastFetch().Equal(first.FetchedAt) {
		t.Fatalf("cached state changed: %v", l.LastFetch())
	}
	if !l.Ready() {
		t.Fatal("loader should stay ready after a failed refresh")
	}

	r.set(salesTable([]string{"07/01/2024", "North", "X", "A", "Ana", "1"}), nil)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("recovery load: %v", err)
	}
	if n := r.calls.Load(); n != 3 {
		t.Fatalf("expected 3 fetches, got %d", n)
	}
}

func TestLoadMissingDateColumn(t *testing.T) {
	r := &countingReader{table: core.Table{
		Columns: []string{"Regional", "Valor"},
		Rows:    [][]string{{"North", "1"}},
	}}
	h := &recordingHandler{}
	l := New(r, WithClock(newClock().Now), WithRefreshHandler(h))

	for i := 0; i < 2; i++ {
		ds, err := l.Load(context.Background())
		var mc *core.MissingColumnError
		if !errors.As(err, &mc) || mc.Column != core.ColDate {
			t.Fatalf("load %d: expected missing column error, got %v", i, err)
		}
		if !ds.Empty() || len(ds.Columns) != 2 {
			t.Fatalf("load %d: expected empty dataset with header, got %+v", i, ds)
		}
	}
	if r.calls.Load() != 1 {
		t.Fatalf("missing column result should be cached, got %d fetches", r.calls.Load())
	}
	if len(h.got) != 0 {
		t.Fatal("handlers must not run for an unusable dataset")
	}
}

func TestLoadSharesConcurrentFetch(t *testing.T) {
	r := &countingReader{
		table: salesTable([]string{"05/01/2024", "North", "X", "A", "Ana", "100"}),
		gate:  make(chan struct{}),
	}
	l := New(r)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background())
			errs <- err
		}()
	}

	deadline := time.After(2 * time.Second)
	for r.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("fetch never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(r.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if n := r.calls.Load(); n != 1 {
		t.Fatalf("expected a single shared fetch, got %d", n)
	}
}

func TestRefreshHandlers(t *testing.T) {
	r := &countingReader{table: salesTable(
		[]string{"05/01/2024", "North", "X", "A", "Ana", "100"},
		[]string{"not a date", "North", "X", "A", "Ana", "100"},
	)}
	ok := &recordingHandler{}
	failing := &recordingHandler{err: errors.New("queue down")}
	l := New(r, WithClock(newClock().Now), WithRefreshHandler(failing), WithRefreshHandler(ok), WithRefreshHandler(nil))

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("handler errors must not propagate: %v", err)
	}
	if len(ok.got) != 1 || len(failing.got) != 1 {
		t.Fatalf("handlers not called: ok=%d failing=%d", len(ok.got), len(failing.got))
	}
	got := ok.got[0]
	if got.Source != "fake" || got.Records != 1 || got.Dropped != 1 || len(got.Table.Rows) != 2 {
		t.Fatalf("unexpected refresh: %+v", got)
	}
}

func TestInvalidate(t *testing.T) {
	r := &countingReader{table: salesTable([]string{"05/01/2024", "North", "X", "A", "Ana", "100"})}
	l := New(r, WithClock(newClock().Now))
	if l.Ready() {
		t.Fatal("not ready before first load")
	}
	_, _ = l.Load(context.Background())
	l.Invalidate()
	_, _ = l.Load(context.Background())
	if r.calls.Load() != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", r.calls.Load())
	}
}

func TestWithTTLIgnoresNonPositive(t *testing.T) {
	l := New(&countingReader{}, WithTTL(0))
	if l.TTL() != DefaultTTL {
		t.Fatalf("ttl = %v", l.TTL())
	}
}
