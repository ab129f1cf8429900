package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// Driver owns the simulation clock for one backtest run and sequences each
// day: stop-losses first, then strategy signals, then the daily snapshot.
// Every run gets fresh stores and its own provider; the only shared resource
// is the read-only price repository.
type Driver struct {
	config    models.BacktestConfig
	provider  *Provider
	accounts  *AccountStore
	positions *PositionStore
	risk      *RiskEvaluator
	execution *ExecutionEngine
	strategy  interfaces.Strategy
	logger    *common.Logger

	trades     []models.Trade
	rejections []models.RejectionRecord
	snapshots  []models.DailySnapshot
}

// NewDriver wires a fresh store-set, provider, and execution pipeline for
// one run. A nil commission model uses the flat default.
func NewDriver(config models.BacktestConfig, repo interfaces.PriceRepository, strategy interfaces.Strategy, commission CommissionModel, logger *common.Logger) *Driver {
	if config.AccountID == 0 {
		config.AccountID = 1
	}

	accounts := NewAccountStore(logger)
	positions := NewPositionStore(logger)
	risk := NewRiskEvaluator(logger)

	d := &Driver{
		config:    config,
		provider:  NewProvider(repo, logger, config.StartDate),
		accounts:  accounts,
		positions: positions,
		risk:      risk,
		execution: NewExecutionEngine(accounts, positions, risk, commission, logger),
		strategy:  strategy,
		trades:    []models.Trade{},
		snapshots: []models.DailySnapshot{},
		logger:    logger,
	}

	accounts.Create(config.AccountID, "backtest", config.InitialCapital, models.Day(config.StartDate))
	return d
}

// Run replays the configured date window one calendar day at a time and
// always returns a single result value: completed, canceled at a day
// boundary, or aborted on an engine fault with all state accumulated so far.
func (d *Driver) Run(ctx context.Context) *models.BacktestResult {
	start := time.Now()
	d.logger.Info().
		Str("strategy", d.strategy.Name()).
		Str("from", d.config.StartDate.Format(models.DateLayout)).
		Str("to", d.config.EndDate.Format(models.DateLayout)).
		Int("symbols", len(d.config.Symbols)).
		Msg("Backtest run starting")

	if err := d.provider.Preload(d.config.Symbols); err != nil {
		return d.result(models.RunAborted, FaultFrom(err))
	}

	endDay := models.Day(d.config.EndDate)
	for day := models.Day(d.config.StartDate); !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if err := d.provider.AdvanceTime(day); err != nil {
			return d.result(models.RunAborted, FaultFrom(err))
		}

		// Cancellation is only honored at day boundaries; a canceled run
		// still reports metrics over the partial snapshot list.
		select {
		case <-ctx.Done():
			d.logger.Info().Str("day", day.Format(models.DateLayout)).Msg("Backtest run canceled")
			return d.result(models.RunCanceled, nil)
		default:
		}

		if err := d.sweepStopLosses(day); err != nil {
			return d.result(models.RunAborted, FaultFrom(err))
		}

		if err := d.runStrategy(day); err != nil {
			return d.result(models.RunAborted, FaultFrom(err))
		}

		if err := d.recordSnapshot(day); err != nil {
			return d.result(models.RunAborted, FaultFrom(err))
		}
	}

	result := d.result(models.RunCompleted, nil)
	d.logger.Info().
		Int("days", len(d.snapshots)).
		Int("trades", len(d.trades)).
		Dur("elapsed", time.Since(start)).
		Msg("Backtest run complete")
	return result
}

// sweepStopLosses evaluates open positions in id order and closes any whose
// stop fired, before the strategy sees the day. A position opened today is
// not in danger: it was opened after this sweep, so its earliest possible
// stop exit is tomorrow.
func (d *Driver) sweepStopLosses(day time.Time) error {
	for _, pos := range d.positions.GetOpen(d.config.AccountID) {
		bar, err := d.provider.GetBar(pos.Symbol, day)
		if err != nil {
			return err
		}

		action := d.risk.EvaluateStopLoss(pos, bar, day)
		if !action.Triggered {
			continue
		}

		d.logger.Debug().
			Str("symbol", pos.Symbol).
			Int64("position", pos.ID).
			Str("reason", action.Reason).
			Msg("Stop-loss triggered")

		order := models.Order{
			AccountID:   d.config.AccountID,
			Symbol:      pos.Symbol,
			Side:        models.SideSell,
			Quantity:    pos.Quantity,
			CloseReason: action.Reason,
		}
		if err := d.routeOrder(order, day); err != nil {
			return err
		}
	}
	return nil
}

// runStrategy collects the day's signals and routes them in emission order.
func (d *Driver) runStrategy(day time.Time) error {
	signals, err := d.strategy.GenerateSignals(d.provider, day)
	if err != nil {
		return err
	}

	for _, sig := range signals {
		order := models.Order{
			AccountID:     d.config.AccountID,
			Symbol:        sig.Symbol,
			Side:          sig.Side,
			Quantity:      sig.Quantity,
			StopLossPrice: sig.StopLossPrice,
			StopLossDays:  sig.StopLossDays,
		}
		if err := d.routeOrder(order, day); err != nil {
			return err
		}
	}
	return nil
}

// routeOrder executes one order, appending a trade on success or a
// rejection record on validation failure. Rejections never abort the run.
func (d *Driver) routeOrder(order models.Order, day time.Time) error {
	res, err := d.execution.Execute(order, d.provider, day)
	if err != nil {
		return err
	}

	if !res.Success {
		d.rejections = append(d.rejections, models.RejectionRecord{
			Date:     day,
			Symbol:   order.Symbol,
			Side:     order.Side,
			Quantity: order.Quantity,
			Reason:   string(res.Reason),
		})
		return nil
	}

	d.trades = append(d.trades, *res.Trade)
	return nil
}

// recordSnapshot prices open positions at the last-known close and appends
// the day's equity snapshot. Days with no new bars still snapshot; open
// positions carry their previous value.
func (d *Driver) recordSnapshot(day time.Time) error {
	account, err := d.accounts.Get(d.config.AccountID)
	if err != nil {
		return err
	}

	open := d.positions.GetOpen(d.config.AccountID)
	positionsValue := decimal.Zero
	for _, pos := range open {
		bar, err := d.provider.GetBar(pos.Symbol, day)
		if err != nil {
			return err
		}
		positionsValue = positionsValue.Add(pos.MarketValue(bar.Close))
	}

	d.snapshots = append(d.snapshots, models.DailySnapshot{
		Date:           day,
		Cash:           account.CurrentCash,
		PositionsValue: positionsValue,
		TotalEquity:    account.CurrentCash.Add(positionsValue),
		OpenPositions:  len(open),
	})
	return nil
}

// result assembles the final record. Identical config and repository
// contents yield identical results; the driver introduces no randomness
// and assigns no identifiers.
func (d *Driver) result(status models.RunStatus, fault *models.Fault) *models.BacktestResult {
	return &models.BacktestResult{
		Config:         d.config,
		Status:         status,
		Fault:          fault,
		Metrics:        ComputeMetrics(d.config.InitialCapital, d.snapshots, d.trades),
		Trades:         d.trades,
		Rejections:     d.rejections,
		DailySnapshots: d.snapshots,
	}
}
