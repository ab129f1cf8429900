package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
)

// CommissionModel computes the commission for a fill.
type CommissionModel func(quantity int64, price decimal.Decimal) decimal.Decimal

// FlatCommission charges a fixed fee per fill regardless of size.
func FlatCommission(fee decimal.Decimal) CommissionModel {
	return func(int64, decimal.Decimal) decimal.Decimal {
		return fee
	}
}

// DefaultCommission is the flat fee used when none is configured.
var DefaultCommission = FlatCommission(decimal.NewFromInt(5))

// OrderResult reports the outcome of routing one order. A rejected order
// changes no state. Trade is set only on success.
type OrderResult struct {
	Success    bool
	Reason     RejectionReason
	Price      decimal.Decimal
	Commission decimal.Decimal
	PositionID int64
	Trade      *models.Trade
}

// ExecutionEngine turns validated orders into position and account
// mutations. It is shared by backtests and live trading: the only market
// contact is through the temporal provider.
type ExecutionEngine struct {
	accounts   *AccountStore
	positions  *PositionStore
	risk       *RiskEvaluator
	commission CommissionModel
	logger     *common.Logger
}

// NewExecutionEngine creates an execution engine over the given stores.
// A nil commission model falls back to the flat default.
func NewExecutionEngine(accounts *AccountStore, positions *PositionStore, risk *RiskEvaluator, commission CommissionModel, logger *common.Logger) *ExecutionEngine {
	if commission == nil {
		commission = DefaultCommission
	}
	return &ExecutionEngine{
		accounts:   accounts,
		positions:  positions,
		risk:       risk,
		commission: commission,
		logger:     logger,
	}
}

// Execute prices, validates, and fills one order at the current simulation
// date. Validation failures come back as a rejected OrderResult; an error
// return is an engine fault and aborts the run.
func (e *ExecutionEngine) Execute(order models.Order, provider *Provider, currentDate time.Time) (OrderResult, error) {
	account, err := e.accounts.Get(order.AccountID)
	if err != nil {
		return OrderResult{}, err
	}

	// Unknown symbols are an order rejection, not a data fault: the symbol
	// availability check must precede the bar fetch.
	if !provider.IsSymbolAvailable(order.Symbol, currentDate) {
		return OrderResult{Reason: RejectUnknownSymbol}, nil
	}

	bar, err := provider.GetBar(order.Symbol, currentDate)
	if err != nil {
		return OrderResult{}, fmt.Errorf("execution price lookup: %w", err)
	}
	execPrice := bar.Close
	commission := e.commission(order.Quantity, execPrice)

	ok, reason := e.risk.Validate(order, account, provider, e.positions, execPrice, commission, currentDate)
	if !ok {
		e.logger.Debug().
			Str("symbol", order.Symbol).
			Str("side", string(order.Side)).
			Str("reason", string(reason)).
			Msg("Order rejected")
		return OrderResult{Reason: reason}, nil
	}

	switch order.Side {
	case models.SideBuy:
		return e.executeBuy(order, execPrice, commission, currentDate)
	case models.SideSell:
		return e.executeSell(order, execPrice, commission, currentDate)
	default:
		return OrderResult{}, fmt.Errorf("%w: unknown order side %q", ErrInvariantBreach, order.Side)
	}
}

func (e *ExecutionEngine) executeBuy(order models.Order, price, commission decimal.Decimal, date time.Time) (OrderResult, error) {
	cost := price.Mul(decimal.NewFromInt(order.Quantity)).Add(commission)

	reserved, err := e.accounts.ReserveFunds(order.AccountID, cost)
	if err != nil {
		return OrderResult{}, err
	}
	if !reserved {
		return OrderResult{Reason: RejectInsufficientFunds}, nil
	}

	pos, err := e.positions.Open(order.AccountID, order.Symbol, price, order.Quantity, date, order.StopLossPrice, order.StopLossDays)
	if err != nil {
		// Roll the reservation back before surfacing the fault so partial
		// state never leaks into the run.
		if relErr := e.accounts.ReleaseFunds(order.AccountID, cost); relErr != nil {
			return OrderResult{}, relErr
		}
		return OrderResult{}, err
	}

	trade := &models.Trade{
		Date:       models.Day(date),
		Symbol:     order.Symbol,
		Side:       models.SideBuy,
		Quantity:   order.Quantity,
		Price:      price,
		Commission: commission,
		PositionID: pos.ID,
	}

	return OrderResult{
		Success:    true,
		Price:      price,
		Commission: commission,
		PositionID: pos.ID,
		Trade:      trade,
	}, nil
}

func (e *ExecutionEngine) executeSell(order models.Order, price, commission decimal.Decimal, date time.Time) (OrderResult, error) {
	pos := e.positions.FindOpen(order.AccountID, order.Symbol)
	if pos == nil {
		return OrderResult{Reason: RejectNoPositionToClose}, nil
	}

	reason := order.CloseReason
	if reason == "" {
		reason = ExitReasonUser
	}

	closed, err := e.positions.Close(pos.ID, price, date, reason)
	if err != nil {
		return OrderResult{}, err
	}

	// A sell always closes the full position; entry cost left the account
	// at buy time, so crediting proceeds realizes the P&L in cash.
	proceeds := price.Mul(decimal.NewFromInt(closed.Quantity)).Sub(commission)
	if err := e.accounts.ApplyTrade(order.AccountID, proceeds); err != nil {
		return OrderResult{}, err
	}

	trade := &models.Trade{
		Date:       models.Day(date),
		Symbol:     order.Symbol,
		Side:       models.SideSell,
		Quantity:   closed.Quantity,
		Price:      price,
		Commission: commission,
		PositionID: closed.ID,
		ExitReason: reason,
	}

	return OrderResult{
		Success:    true,
		Price:      price,
		Commission: commission,
		PositionID: closed.ID,
		Trade:      trade,
	}, nil
}
