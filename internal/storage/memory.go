// Package storage provides the price repository and result store backends.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// MemoryBarStore is an in-memory BarStore. It backs tests and preloaded
// runs; reads are safe across parallel backtests.
type MemoryBarStore struct {
	mu   sync.RWMutex
	bars map[string][]models.Bar // sorted by date ascending
}

// NewMemoryBarStore creates an empty in-memory bar store.
func NewMemoryBarStore() *MemoryBarStore {
	return &MemoryBarStore{bars: make(map[string][]models.Bar)}
}

// LoadAllBars returns the symbol's bars, oldest first. Unknown symbols
// return an empty slice.
func (s *MemoryBarStore) LoadAllBars(symbol string) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.bars[symbol]
	out := make([]models.Bar, len(stored))
	copy(out, stored)
	return out, nil
}

// SaveBars upserts bars for a symbol, deduplicating on date with the last
// writer winning, and keeps the series sorted ascending.
func (s *MemoryBarStore) SaveBars(_ context.Context, symbol string, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[time.Time]models.Bar, len(s.bars[symbol])+len(bars))
	for _, b := range s.bars[symbol] {
		byDate[models.Day(b.Date)] = b
	}
	for _, b := range bars {
		b.Symbol = symbol
		b.Date = models.Day(b.Date)
		byDate[b.Date] = b
	}

	merged := make([]models.Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	s.bars[symbol] = merged
	return nil
}

// Symbols lists every symbol with at least one bar, sorted.
func (s *MemoryBarStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.bars))
	for symbol, bars := range s.bars {
		if len(bars) > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// MemoryResultStore is an in-memory ResultStore.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]*models.BacktestResult
}

// NewMemoryResultStore creates an empty in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]*models.BacktestResult)}
}

// SaveResult stores a result keyed by its run ID.
func (s *MemoryResultStore) SaveResult(_ context.Context, result *models.BacktestResult) error {
	if result.ID == "" {
		return fmt.Errorf("cannot save result without an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
	return nil
}

// GetResult retrieves a result by run ID.
func (s *MemoryResultStore) GetResult(_ context.Context, id string) (*models.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("backtest result '%s' not found", id)
	}
	return result, nil
}

// ListResults returns all results, newest first.
func (s *MemoryResultStore) ListResults(_ context.Context) ([]*models.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BacktestResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteResult removes a result by run ID. Missing ids are not an error.
func (s *MemoryResultStore) DeleteResult(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
	return nil
}

var (
	_ interfaces.BarStore    = (*MemoryBarStore)(nil)
	_ interfaces.ResultStore = (*MemoryResultStore)(nil)
)
