package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a virtual trading account scoped to one backtest run.
// InitialCapital is immutable after creation; CurrentCash never goes negative.
type Account struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CurrentCash    decimal.Decimal `json:"current_cash"`
	CreatedDate    time.Time       `json:"created_date"`
	IsActive       bool            `json:"is_active"`
}
