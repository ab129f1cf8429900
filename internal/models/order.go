package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order is a transient request routed through the execution engine.
// It is never persisted; its effect is a position mutation plus a Trade.
// For sells the quantity is informational; a sell always closes the
// entire open position.
type Order struct {
	AccountID     int64            `json:"account_id"`
	Symbol        string           `json:"symbol"`
	Side          Side             `json:"side"`
	Quantity      int64            `json:"quantity"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	StopLossDays  *int             `json:"stop_loss_days,omitempty"`
	CloseReason   string           `json:"close_reason,omitempty"`
}

// Trade is the append-only record of one fill.
type Trade struct {
	Date       time.Time       `json:"date"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	PositionID int64           `json:"position_id"`
	ExitReason string          `json:"exit_reason,omitempty"`
}

// Signal is one instruction emitted by a strategy for a single day.
type Signal struct {
	Symbol        string           `json:"symbol"`
	Side          Side             `json:"side"`
	Quantity      int64            `json:"quantity"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	StopLossDays  *int             `json:"stop_loss_days,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}
