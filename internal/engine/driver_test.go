package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// scriptedStrategy emits a fixed set of signals keyed by date.
type scriptedStrategy struct {
	signals map[string][]models.Signal
	failOn  string
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) GenerateSignals(_ interfaces.MarketProvider, current time.Time) ([]models.Signal, error) {
	key := current.Format(models.DateLayout)
	if s.failOn != "" && key == s.failOn {
		return nil, errors.New("strategy blew up")
	}
	return s.signals[key], nil
}

func testConfig(start, end string, symbols ...string) models.BacktestConfig {
	return models.BacktestConfig{
		AccountID:      1,
		StartDate:      date(start),
		EndDate:        date(end),
		InitialCapital: dec("10000"),
		Symbols:        symbols,
		Strategy:       models.StrategyConfig{Type: "scripted"},
	}
}

func dailyBars(symbol, start string, closes []float64) []models.Bar {
	dates := make([]string, len(closes))
	d := date(start)
	for i := range closes {
		dates[i] = d.AddDate(0, 0, i).Format(models.DateLayout)
	}
	return barsFor(symbol, dates, closes)
}

func TestDriverBuyThenSell(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 50, 60, 60, 60}),
	}}
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 100}},
		"2024-01-03": {{Symbol: "AAPL", Side: models.SideSell, Quantity: 100}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-05", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Nil(t, result.Fault)
	require.Len(t, result.Trades, 2)
	assert.Empty(t, result.Rejections)

	// Buy: 10000 - (100*50 + 5); sell: + (100*60 - 5).
	assert.True(t, result.Metrics.FinalEquity.Equal(dec("10990")),
		"final equity %s", result.Metrics.FinalEquity)
	assert.Equal(t, 1, result.Metrics.ClosedTrades)
	assert.Equal(t, 1, result.Metrics.WinningTrades)

	// One snapshot per calendar day, inclusive of both endpoints.
	require.Len(t, result.DailySnapshots, 5)
	assert.Equal(t, date("2024-01-01"), result.DailySnapshots[0].Date)
	assert.Equal(t, date("2024-01-05"), result.DailySnapshots[4].Date)

	// Day 1 holds the position: cash 4995 + 100 shares at 50.
	day1 := result.DailySnapshots[0]
	assert.True(t, day1.Cash.Equal(dec("4995")))
	assert.True(t, day1.TotalEquity.Equal(dec("9995")), "day1 equity %s", day1.TotalEquity)
	assert.Equal(t, 1, day1.OpenPositions)

	// After the sell everything is cash again.
	day3 := result.DailySnapshots[2]
	assert.True(t, day3.Cash.Equal(day3.TotalEquity))
	assert.Equal(t, 0, day3.OpenPositions)
}

func TestDriverPriceStopFiresNextDay(t *testing.T) {
	// Buy at 100 with a 90 stop; price collapses to 85 the next day.
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{100, 85, 85}),
	}}
	stop := decPtr("90")
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, StopLossPrice: stop}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-03", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Len(t, result.Trades, 2)

	sell := result.Trades[1]
	assert.Equal(t, models.SideSell, sell.Side)
	assert.Equal(t, date("2024-01-02"), sell.Date)
	assert.True(t, sell.Price.Equal(dec("85")))
	assert.Equal(t, ExitReasonPriceStop, sell.ExitReason)

	// No position remains after the stop.
	assert.Equal(t, 0, result.DailySnapshots[1].OpenPositions)
}

func TestDriverTimeStop(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{100, 100, 100, 100, 100}),
	}}
	days := 2
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, StopLossDays: &days}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-05", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Len(t, result.Trades, 2)
	sell := result.Trades[1]
	assert.Equal(t, date("2024-01-03"), sell.Date, "entry +2 days")
	assert.Equal(t, ExitReasonTimeStop, sell.ExitReason)
}

func TestDriverStopSweepRunsBeforeSignals(t *testing.T) {
	// The stop closes AAPL at the start of day 2, so the scripted re-buy on
	// day 2 is not a duplicate.
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{100, 85, 85}),
	}}
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, StopLossPrice: decPtr("90")}},
		"2024-01-02": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-03", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	assert.Empty(t, result.Rejections)
	require.Len(t, result.Trades, 3)
	assert.Equal(t, models.SideSell, result.Trades[1].Side)
	assert.Equal(t, models.SideBuy, result.Trades[2].Side)
	assert.Equal(t, 1, result.DailySnapshots[1].OpenPositions)
}

func TestDriverDuplicateBuyIsRejectedAndRunContinues(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 50, 50}),
	}}
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10}},
		"2024-01-02": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-03", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Len(t, result.Trades, 1)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, string(RejectDuplicateOpenPosition), result.Rejections[0].Reason)
	assert.Equal(t, date("2024-01-02"), result.Rejections[0].Date)
	require.Len(t, result.DailySnapshots, 3)
}

func TestDriverUnknownSymbolSignalIsRejected(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 50}),
	}}
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-01": {{Symbol: "GHOST", Side: models.SideBuy, Quantity: 10}},
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-02", "AAPL", "GHOST"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, string(RejectUnknownSymbol), result.Rejections[0].Reason)
}

func TestDriverStrategyErrorAbortsRun(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 50, 50}),
	}}
	strat := &scriptedStrategy{failOn: "2024-01-02"}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-03", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunAborted, result.Status)
	require.NotNil(t, result.Fault)
	assert.Equal(t, "internal", result.Fault.Kind)
	// The run kept everything accumulated before the fault.
	assert.Len(t, result.DailySnapshots, 1)
}

func TestDriverCancellationAtDayBoundary(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 50, 50}),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := NewDriver(testConfig("2024-01-01", "2024-01-03", "AAPL"), repo, &scriptedStrategy{}, nil, common.NewSilentLogger())
	result := driver.Run(ctx)

	require.Equal(t, models.RunCanceled, result.Status)
	assert.Nil(t, result.Fault)
	assert.Empty(t, result.DailySnapshots)
	assert.True(t, result.Metrics.FinalEquity.Equal(dec("10000")))
}

func TestDriverSingleDayWindow(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50}),
	}}

	driver := NewDriver(testConfig("2024-01-01", "2024-01-01", "AAPL"), repo, &scriptedStrategy{}, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	assert.Len(t, result.DailySnapshots, 1)
}

func TestDriverEmptyUniverseIsCashOnly(t *testing.T) {
	driver := NewDriver(testConfig("2024-01-01", "2024-01-03"), &fakeRepo{}, &scriptedStrategy{}, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	assert.Empty(t, result.Trades)
	require.Len(t, result.DailySnapshots, 3)
	for _, snap := range result.DailySnapshots {
		assert.True(t, snap.TotalEquity.Equal(dec("10000")))
		assert.True(t, snap.Cash.Equal(snap.TotalEquity))
		assert.Equal(t, 0, snap.OpenPositions)
	}
}

func TestDriverWeekendGapCarriesPositionValue(t *testing.T) {
	// Bars on Fri and Mon only; Sat/Sun snapshots price at Friday's close.
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": barsFor("AAPL", []string{"2024-01-05", "2024-01-08"}, []float64{50, 60}),
	}}
	strat := &scriptedStrategy{signals: map[string][]models.Signal{
		"2024-01-05": {{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10}},
	}}

	driver := NewDriver(testConfig("2024-01-05", "2024-01-08", "AAPL"), repo, strat, nil, common.NewSilentLogger())
	result := driver.Run(context.Background())

	require.Equal(t, models.RunCompleted, result.Status)
	require.Len(t, result.DailySnapshots, 4)

	saturday := result.DailySnapshots[1]
	assert.True(t, saturday.PositionsValue.Equal(dec("500")), "sat value %s", saturday.PositionsValue)
	monday := result.DailySnapshots[3]
	assert.True(t, monday.PositionsValue.Equal(dec("600")), "mon value %s", monday.PositionsValue)
}

func TestDriverIsDeterministic(t *testing.T) {
	run := func() *models.BacktestResult {
		repo := &fakeRepo{bars: map[string][]models.Bar{
			"AAPL": dailyBars("AAPL", "2024-01-01", []float64{50, 55, 45, 60, 52}),
			"MSFT": dailyBars("MSFT", "2024-01-01", []float64{100, 90, 95, 105, 110}),
		}}
		strat := &scriptedStrategy{signals: map[string][]models.Signal{
			"2024-01-01": {
				{Symbol: "AAPL", Side: models.SideBuy, Quantity: 10, StopLossPrice: decPtr("47")},
				{Symbol: "MSFT", Side: models.SideBuy, Quantity: 5},
			},
			"2024-01-04": {{Symbol: "MSFT", Side: models.SideSell, Quantity: 5}},
		}}
		driver := NewDriver(testConfig("2024-01-01", "2024-01-05", "AAPL", "MSFT"), repo, strat, nil, common.NewSilentLogger())
		return driver.Run(context.Background())
	}

	first := run()
	second := run()
	assert.True(t, reflect.DeepEqual(first, second), "identical inputs must produce identical results")
}
