package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a position.
// Transitions are monotonic: Open → Closed, never back.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Position represents a long holding in a single symbol.
// Exit fields are set exactly once, when the position closes.
type Position struct {
	ID            int64            `json:"id"`
	AccountID     int64            `json:"account_id"`
	Symbol        string           `json:"symbol"`
	EntryDate     time.Time        `json:"entry_date"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	Quantity      int64            `json:"quantity"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	StopLossDays  *int             `json:"stop_loss_days,omitempty"`
	Status        PositionStatus   `json:"status"`

	ExitDate   *time.Time       `json:"exit_date,omitempty"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	RealizedPL *decimal.Decimal `json:"realized_pl,omitempty"`
	ExitReason string           `json:"exit_reason,omitempty"`
}

// IsOpen reports whether the position is still held.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// MarketValue prices the position at the given per-share price.
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}
