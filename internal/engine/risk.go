package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// RejectionReason enumerates why an order failed validation. Rejections are
// non-fatal: the driver records them and the run continues.
type RejectionReason string

const (
	RejectUnknownSymbol         RejectionReason = "unknown_symbol"
	RejectNonPositiveQuantity   RejectionReason = "non_positive_quantity"
	RejectAccountInactive       RejectionReason = "account_inactive"
	RejectInsufficientFunds     RejectionReason = "insufficient_funds"
	RejectDuplicateOpenPosition RejectionReason = "duplicate_open_position"
	RejectNoPositionToClose     RejectionReason = "no_position_to_close"
)

// Exit reasons recorded on closed positions and sell trades.
const (
	ExitReasonUser      = "user"
	ExitReasonPriceStop = "price_stop"
	ExitReasonTimeStop  = "time_stop"
)

// StopAction is the outcome of a stop-loss evaluation.
type StopAction struct {
	Triggered bool
	Reason    string
}

// RiskEvaluator validates orders before execution and evaluates stop-loss
// conditions on open positions.
type RiskEvaluator struct {
	logger *common.Logger
}

// NewRiskEvaluator creates a risk evaluator.
func NewRiskEvaluator(logger *common.Logger) *RiskEvaluator {
	return &RiskEvaluator{logger: logger}
}

// Validate checks an order against the account, the position book, and the
// execution price. It returns ok=false with the first failing reason; checks
// run in a fixed order so rejection reasons are deterministic.
func (r *RiskEvaluator) Validate(
	order models.Order,
	account *models.Account,
	provider interfaces.MarketProvider,
	positions *PositionStore,
	execPrice decimal.Decimal,
	commission decimal.Decimal,
	currentDate time.Time,
) (bool, RejectionReason) {
	if !provider.IsSymbolAvailable(order.Symbol, currentDate) {
		return false, RejectUnknownSymbol
	}
	if order.Quantity <= 0 {
		return false, RejectNonPositiveQuantity
	}
	if !account.IsActive {
		return false, RejectAccountInactive
	}

	switch order.Side {
	case models.SideBuy:
		cost := execPrice.Mul(decimal.NewFromInt(order.Quantity)).Add(commission)
		if account.CurrentCash.LessThan(cost) {
			return false, RejectInsufficientFunds
		}
		if positions.FindOpen(order.AccountID, order.Symbol) != nil {
			return false, RejectDuplicateOpenPosition
		}
	case models.SideSell:
		if positions.FindOpen(order.AccountID, order.Symbol) == nil {
			return false, RejectNoPositionToClose
		}
	}

	return true, ""
}

// EvaluateStopLoss checks a position against the day's bar. Evaluation uses
// the bar's close only; the engine operates on daily closes, never the
// intraday range. When both stops fire on the same day, the price stop is
// reported.
func (r *RiskEvaluator) EvaluateStopLoss(pos *models.Position, bar models.Bar, currentDate time.Time) StopAction {
	if pos.StopLossPrice != nil && bar.Close.LessThanOrEqual(*pos.StopLossPrice) {
		return StopAction{Triggered: true, Reason: ExitReasonPriceStop}
	}
	if pos.StopLossDays != nil && models.DaysBetween(pos.EntryDate, currentDate) >= *pos.StopLossDays {
		return StopAction{Triggered: true, Reason: ExitReasonTimeStop}
	}
	return StopAction{}
}
