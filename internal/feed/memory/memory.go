package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"vendas/internal/core"
	"vendas/internal/feed"
	"vendas/internal/feed/csvfeed"
)

// Store serves a fixed table. Used for local development and tests.
type Store struct {
	mu    sync.Mutex
	table core.Table
	reads int
}

var _ feed.TableReader = (*Store)(nil)

func New(t core.Table) *Store {
	return &Store{table: cloneTable(t)}
}

// NewFromFile seeds the store from a CSV file on disk.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	t, err := csvfeed.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return New(t), nil
}

func (s *Store) Name() string { return "memory" }

// ReadTable returns a copy of the stored table.
func (s *Store) ReadTable(_ context.Context) (core.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return cloneTable(s.table), nil
}

// Replace swaps the stored table.
func (s *Store) Replace(t core.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = cloneTable(t)
}

// Reads reports how many times ReadTable was called.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func cloneTable(t core.Table) core.Table {
	out := core.Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
