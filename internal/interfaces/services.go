package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/kestrel/internal/models"
)

// MarketProvider is the time-gated view of historical market data handed to
// strategies and the execution pipeline. No method ever returns a bar dated
// after the provider's current simulation time.
type MarketProvider interface {
	// AdvanceTime moves the simulation clock forward. Moving it backward
	// is a programming error and fails.
	AdvanceTime(t time.Time) error

	// CurrentTime returns the simulation clock.
	CurrentTime() time.Time

	// GetBar returns the most recent bar at or before asOf.
	// asOf beyond the clock is a future-data fault.
	GetBar(symbol string, asOf time.Time) (models.Bar, error)

	// GetHistoricalBars returns bars with from ≤ date ≤ min(to, clock) in
	// ascending date order. A to beyond the clock silently clamps.
	GetHistoricalBars(symbol string, from, to time.Time) ([]models.Bar, error)

	// IsSymbolAvailable reports whether the symbol has at least one bar
	// at or before asOf (clamped to the clock).
	IsSymbolAvailable(symbol string, asOf time.Time) bool
}

// Strategy generates signals for one simulation day. A strategy sees only
// the temporal provider (never the repository, account, or positions)
// and is stateless across days from the engine's perspective.
type Strategy interface {
	Name() string
	GenerateSignals(provider MarketProvider, current time.Time) ([]models.Signal, error)
}

// BacktestService orchestrates backtest runs against the shared repository.
type BacktestService interface {
	// Run executes a single backtest. The context cancels the run at a day
	// boundary; a canceled run still yields a partial result.
	Run(ctx context.Context, config models.BacktestConfig) (*models.BacktestResult, error)

	// RunBatch executes several isolated backtests concurrently.
	RunBatch(ctx context.Context, configs []models.BacktestConfig) ([]*models.BacktestResult, error)

	// GetResult retrieves a persisted result by run ID.
	GetResult(ctx context.Context, id string) (*models.BacktestResult, error)

	// ListResults returns all persisted results, newest first.
	ListResults(ctx context.Context) ([]*models.BacktestResult, error)

	// RenderEquityChart renders a PNG equity curve for a persisted result.
	RenderEquityChart(ctx context.Context, id string) ([]byte, error)
}
