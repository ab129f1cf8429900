// Package engine implements the backtest simulation core: the temporal
// market data provider, the account/position/risk/execution pipeline, the
// day-by-day driver, and the performance metrics calculator.
package engine

import (
	"errors"

	"github.com/bobmcallan/kestrel/internal/models"
)

// Engine faults. Any of these surfacing during a run is fatal to that run:
// the driver stops, keeps the state accumulated so far, and tags the result
// as aborted. Order rejections are values, not errors, and never abort.
var (
	// ErrFutureData is returned when a query asks for data dated after the
	// simulation clock.
	ErrFutureData = errors.New("future data access")

	// ErrClockRegression is returned when AdvanceTime is called with a date
	// before the current simulation time.
	ErrClockRegression = errors.New("clock regression")

	// ErrDataNotFound is returned when no bar exists at or before the
	// requested date, or the symbol is unknown to the repository.
	ErrDataNotFound = errors.New("data not found")

	// ErrInvariantBreach is returned when internal bookkeeping detects a
	// state that pre-validation should have made impossible.
	ErrInvariantBreach = errors.New("invariant breach")
)

// FaultFrom classifies an engine error into a result fault descriptor.
func FaultFrom(err error) *models.Fault {
	if err == nil {
		return nil
	}

	kind := "internal"
	switch {
	case errors.Is(err, ErrFutureData):
		kind = "future_data_access"
	case errors.Is(err, ErrClockRegression):
		kind = "clock_regression"
	case errors.Is(err, ErrDataNotFound):
		kind = "data_not_found"
	case errors.Is(err, ErrInvariantBreach):
		kind = "invariant_breach"
	}

	return &models.Fault{Kind: kind, Message: err.Error()}
}
