package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/models"
)

// tradingDaysPerYear is the annualization convention for the Sharpe ratio.
// Day-to-day returns come from calendar-day snapshots, so this mildly biases
// Sharpe on markets with long holidays; the convention is kept for
// comparability with the usual 252-day figure.
const tradingDaysPerYear = 252

// roundTrip is a matched buy+sell pair on one position id.
type roundTrip struct {
	buy  models.Trade
	sell models.Trade
}

// ComputeMetrics derives the aggregate performance block from the recorded
// snapshots and trades. Commission is not subtracted here; it already
// flowed through cash at execution time.
func ComputeMetrics(initialCapital decimal.Decimal, snapshots []models.DailySnapshot, trades []models.Trade) models.Metrics {
	m := models.Metrics{
		FinalEquity:  initialCapital,
		TotalReturn:  decimal.Zero,
		MaxDrawdown:  decimal.Zero,
		WinRate:      decimal.Zero,
		ProfitFactor: decimal.Zero,
		AvgWin:       decimal.Zero,
		AvgLoss:      decimal.Zero,
		TotalTrades:  len(trades),
	}

	if len(snapshots) > 0 {
		m.FinalEquity = snapshots[len(snapshots)-1].TotalEquity
	}
	if initialCapital.IsPositive() {
		m.TotalReturn = m.FinalEquity.Sub(initialCapital).Div(initialCapital)
	}

	m.MaxDrawdown = maxDrawdown(snapshots)
	m.SharpeRatio = sharpeRatio(snapshots)

	computeTradeStats(&m, trades)
	return m
}

// maxDrawdown sweeps the equity curve maintaining a running peak and
// reports the largest fractional decline from it.
func maxDrawdown(snapshots []models.DailySnapshot) decimal.Decimal {
	maxDD := decimal.Zero
	peak := decimal.Zero

	for _, snap := range snapshots {
		if snap.TotalEquity.GreaterThan(peak) {
			peak = snap.TotalEquity
		}
		if peak.IsPositive() {
			dd := peak.Sub(snap.TotalEquity).Div(peak)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio computes mean(r)/stdev(r)·√252 over day-to-day equity
// returns, using the population standard deviation (divide by N). Sharpe is
// a statistical summary, so float math is acceptable here.
func sharpeRatio(snapshots []models.DailySnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalEquity.InexactFloat64()
		curr := snapshots[i].TotalEquity.InexactFloat64()
		if prev == 0 {
			return 0
		}
		returns = append(returns, (curr-prev)/prev)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

// computeTradeStats matches trades into round trips by position id and
// fills the win/loss statistics. Unmatched trades (a still-open buy) are
// excluded from trade-count statistics but already affected equity.
func computeTradeStats(m *models.Metrics, trades []models.Trade) {
	buys := make(map[int64]models.Trade)
	sells := make(map[int64]models.Trade)
	order := make([]int64, 0, len(trades))

	for _, t := range trades {
		switch t.Side {
		case models.SideBuy:
			if _, seen := buys[t.PositionID]; !seen {
				order = append(order, t.PositionID)
			}
			buys[t.PositionID] = t
		case models.SideSell:
			sells[t.PositionID] = t
		}
	}

	var trips []roundTrip
	for _, id := range order {
		sell, ok := sells[id]
		if !ok {
			continue
		}
		trips = append(trips, roundTrip{buy: buys[id], sell: sell})
	}

	m.ClosedTrades = len(trips)
	if len(trips) == 0 {
		return
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero

	for _, rt := range trips {
		pl := rt.sell.Price.Sub(rt.buy.Price).Mul(decimal.NewFromInt(rt.sell.Quantity))
		if rt.sell.Price.GreaterThan(rt.buy.Price) {
			m.WinningTrades++
			grossProfit = grossProfit.Add(pl)
		} else {
			m.LosingTrades++
			grossLoss = grossLoss.Add(pl.Abs())
		}
	}

	m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).Div(decimal.NewFromInt(int64(m.ClosedTrades)))
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(m.LosingTrades)))
	}
	if grossLoss.IsPositive() {
		m.ProfitFactor = grossProfit.Div(grossLoss)
	}
}
