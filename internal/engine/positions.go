package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
)

// PositionStore is the arena of positions for a single backtest run, keyed
// by an integer id assigned at open. Navigation is by explicit lookup;
// positions never hold references to accounts or orders.
type PositionStore struct {
	seq       int64
	positions map[int64]*models.Position
	logger    *common.Logger
}

// NewPositionStore creates an empty position store.
func NewPositionStore(logger *common.Logger) *PositionStore {
	return &PositionStore{
		positions: make(map[int64]*models.Position),
		logger:    logger,
	}
}

// Open creates an Open position. At most one open position may exist per
// (account, symbol); the execution engine pre-validates, so a duplicate here
// is an invariant breach.
func (s *PositionStore) Open(accountID int64, symbol string, price decimal.Decimal, qty int64, date time.Time, stopPrice *decimal.Decimal, stopDays *int) (*models.Position, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: position quantity must be positive, got %d", ErrInvariantBreach, qty)
	}
	if existing := s.FindOpen(accountID, symbol); existing != nil {
		return nil, fmt.Errorf("%w: account %d already has an open %s position (id %d)",
			ErrInvariantBreach, accountID, symbol, existing.ID)
	}

	s.seq++
	pos := &models.Position{
		ID:            s.seq,
		AccountID:     accountID,
		Symbol:        symbol,
		EntryDate:     models.Day(date),
		EntryPrice:    price,
		Quantity:      qty,
		StopLossPrice: stopPrice,
		StopLossDays:  stopDays,
		Status:        models.PositionOpen,
	}
	s.positions[pos.ID] = pos
	return pos, nil
}

// Close transitions a position to Closed, setting exit fields and computing
// realized P&L exactly once. Closing a closed position fails.
func (s *PositionStore) Close(positionID int64, exitPrice decimal.Decimal, date time.Time, reason string) (*models.Position, error) {
	pos, ok := s.positions[positionID]
	if !ok {
		return nil, fmt.Errorf("%w: position %d not found", ErrInvariantBreach, positionID)
	}
	if pos.Status == models.PositionClosed {
		return nil, fmt.Errorf("%w: position %d is already closed", ErrInvariantBreach, positionID)
	}

	exitDay := models.Day(date)
	realized := exitPrice.Sub(pos.EntryPrice).Mul(decimal.NewFromInt(pos.Quantity))

	pos.Status = models.PositionClosed
	pos.ExitDate = &exitDay
	pos.ExitPrice = &exitPrice
	pos.RealizedPL = &realized
	pos.ExitReason = reason

	return pos, nil
}

// GetOpen returns the account's open positions ordered by id ascending.
// Stop-loss evaluation depends on this ordering.
func (s *PositionStore) GetOpen(accountID int64) []*models.Position {
	var open []*models.Position
	for _, pos := range s.positions {
		if pos.AccountID == accountID && pos.IsOpen() {
			open = append(open, pos)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open
}

// FindOpen returns the account's open position in symbol, or nil.
func (s *PositionStore) FindOpen(accountID int64, symbol string) *models.Position {
	for _, pos := range s.positions {
		if pos.AccountID == accountID && pos.Symbol == symbol && pos.IsOpen() {
			return pos
		}
	}
	return nil
}
