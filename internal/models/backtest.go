package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StrategyConfig names a registered strategy and carries its raw parameters.
// Params are decoded by the strategy factory, not here.
type StrategyConfig struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// BacktestConfig is the input for one backtest run.
type BacktestConfig struct {
	AccountID      int64           `json:"account_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	Symbols        []string        `json:"symbols"`
	Strategy       StrategyConfig  `json:"strategy"`
}

// RunStatus is the terminal state of a backtest run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunCanceled  RunStatus = "canceled"
)

// Fault describes the engine fault that aborted a run.
type Fault struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DailySnapshot records account state at the end of one simulated day.
// Exactly one snapshot is appended per processed calendar day.
type DailySnapshot struct {
	Date           time.Time       `json:"date"`
	Cash           decimal.Decimal `json:"cash"`
	PositionsValue decimal.Decimal `json:"positions_value"`
	TotalEquity    decimal.Decimal `json:"total_equity"`
	OpenPositions  int             `json:"open_positions"`
}

// RejectionRecord captures a non-fatal order rejection during a run.
type RejectionRecord struct {
	Date     time.Time `json:"date"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Quantity int64     `json:"quantity"`
	Reason   string    `json:"reason"`
}

// Metrics is the aggregate performance block of a result.
// SharpeRatio is a statistical summary and uses float math; all monetary
// and ratio fields round-trip as decimals.
type Metrics struct {
	FinalEquity   decimal.Decimal `json:"final_equity"`
	TotalReturn   decimal.Decimal `json:"total_return"`
	MaxDrawdown   decimal.Decimal `json:"max_drawdown"`
	SharpeRatio   float64         `json:"sharpe_ratio"`
	WinRate       decimal.Decimal `json:"win_rate"`
	ProfitFactor  decimal.Decimal `json:"profit_factor"`
	AvgWin        decimal.Decimal `json:"avg_win"`
	AvgLoss       decimal.Decimal `json:"avg_loss"`
	TotalTrades   int             `json:"total_trades"`
	ClosedTrades  int             `json:"closed_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
}

// BacktestResult is the deterministic output of one run. It is a plain
// record with no references into engine internals. ID and CreatedAt are
// assigned at persistence time, not by the driver.
type BacktestResult struct {
	ID        string    `json:"id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	Config BacktestConfig `json:"config"`
	Status RunStatus      `json:"status"`
	Fault  *Fault         `json:"fault,omitempty"`

	Metrics        Metrics           `json:"metrics"`
	Trades         []Trade           `json:"trades"`
	Rejections     []RejectionRecord `json:"rejections,omitempty"`
	DailySnapshots []DailySnapshot   `json:"daily_snapshots"`
}
