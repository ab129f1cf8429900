package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// barRecord is the stored form of one daily bar, keyed by symbol and date
// so re-imports upsert in place.
type barRecord struct {
	Key    string `badgerhold:"key"`
	Symbol string `badgerholdIndex:"Symbol"`
	Bar    models.Bar
}

func barKey(symbol string, bar models.Bar) string {
	return fmt.Sprintf("%s|%s", symbol, bar.Date.Format(models.DateLayout))
}

type barStorage struct {
	store  *Store
	logger *common.Logger
}

// NewBarStorage creates a new BarStore backed by BadgerHold.
func NewBarStorage(store *Store, logger *common.Logger) *barStorage {
	return &barStorage{store: store, logger: logger}
}

func (s *barStorage) LoadAllBars(symbol string) ([]models.Bar, error) {
	var records []barRecord
	query := badgerhold.Where("Symbol").Eq(symbol).Index("Symbol")
	if err := s.store.db.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to load bars for '%s': %w", symbol, err)
	}

	bars := make([]models.Bar, len(records))
	for i, r := range records {
		bars[i] = r.Bar
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func (s *barStorage) SaveBars(_ context.Context, symbol string, bars []models.Bar) error {
	for _, bar := range bars {
		bar.Symbol = symbol
		bar.Date = models.Day(bar.Date)
		record := barRecord{
			Key:    barKey(symbol, bar),
			Symbol: symbol,
			Bar:    bar,
		}
		if err := s.store.db.Upsert(record.Key, record); err != nil {
			return fmt.Errorf("failed to save bar %s: %w", record.Key, err)
		}
	}
	s.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Bars saved")
	return nil
}

func (s *barStorage) Symbols(_ context.Context) ([]string, error) {
	var records []barRecord
	if err := s.store.db.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, r := range records {
		if !seen[r.Symbol] {
			seen[r.Symbol] = true
			symbols = append(symbols, r.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}
