// Package interfaces defines service contracts for Kestrel
package interfaces

import (
	"context"

	"github.com/bobmcallan/kestrel/internal/models"
)

// PriceRepository is the sole persistence contract consumed by the engine's
// market data provider. Implementations return bars sorted by date ascending,
// deduplicated on (symbol, date) with the last writer winning. No temporal
// gating happens here; that is the provider's responsibility.
// Implementations must be safe for concurrent reads across parallel runs.
type PriceRepository interface {
	// LoadAllBars returns every stored bar for a symbol, oldest first.
	// An unknown symbol returns an empty slice, not an error.
	LoadAllBars(symbol string) ([]models.Bar, error)
}

// BarStore extends PriceRepository with ingestion and discovery.
type BarStore interface {
	PriceRepository

	// SaveBars upserts bars for a symbol.
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error

	// Symbols lists every symbol with at least one stored bar.
	Symbols(ctx context.Context) ([]string, error)
}

// ResultStore persists completed backtest results.
type ResultStore interface {
	SaveResult(ctx context.Context, result *models.BacktestResult) error
	GetResult(ctx context.Context, id string) (*models.BacktestResult, error)
	ListResults(ctx context.Context) ([]*models.BacktestResult, error)
	DeleteResult(ctx context.Context, id string) error
}

// StorageManager coordinates all storage backends
type StorageManager interface {
	BarStore() BarStore
	ResultStore() ResultStore
	Close() error
}
