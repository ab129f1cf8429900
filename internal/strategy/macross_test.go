package strategy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/engine"
	"github.com/bobmcallan/kestrel/internal/models"
)

// fakeRepo is a PriceRepository over fixed in-memory data.
type fakeRepo struct {
	bars map[string][]models.Bar
}

func (r *fakeRepo) LoadAllBars(symbol string) ([]models.Bar, error) {
	return r.bars[symbol], nil
}

func date(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// closesEndingIn builds a daily series whose last bar lands on end.
func closesEndingIn(symbol, end string, closes []float64) []models.Bar {
	endDay := date(end)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol: symbol,
			Date:   endDay.AddDate(0, 0, i-len(closes)+1),
			Close:  decimal.NewFromFloat(c),
			Volume: 1000,
		}
	}
	return bars
}

func maParams(t *testing.T, short, long int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(MACrossoverParams{ShortPeriod: short, LongPeriod: long, PositionSize: 10})
	require.NoError(t, err)
	return raw
}

func providerAt(repo *fakeRepo, day string) *engine.Provider {
	return engine.NewProvider(repo, common.NewSilentLogger(), date(day))
}

func TestMACrossoverEmitsBuyOnGoldenCross(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": closesEndingIn("AAPL", "2024-03-01", []float64{10, 10, 10, 30}),
	}}

	strat, err := New(models.StrategyConfig{Type: TypeMACrossover, Params: maParams(t, 2, 3)}, []string{"AAPL"})
	require.NoError(t, err)

	signals, err := strat.GenerateSignals(providerAt(repo, "2024-03-01"), date("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.SideBuy, signals[0].Side)
	assert.Equal(t, "AAPL", signals[0].Symbol)
	assert.Equal(t, int64(10), signals[0].Quantity)
}

func TestMACrossoverEmitsSellOnDeathCross(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": closesEndingIn("AAPL", "2024-03-01", []float64{30, 30, 30, 5}),
	}}

	strat, err := New(models.StrategyConfig{Type: TypeMACrossover, Params: maParams(t, 2, 3)}, []string{"AAPL"})
	require.NoError(t, err)

	signals, err := strat.GenerateSignals(providerAt(repo, "2024-03-01"), date("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.SideSell, signals[0].Side)
}

func TestMACrossoverSkipsThinHistory(t *testing.T) {
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": closesEndingIn("AAPL", "2024-03-01", []float64{10, 30}),
	}}

	strat, err := New(models.StrategyConfig{Type: TypeMACrossover, Params: maParams(t, 2, 3)}, []string{"AAPL"})
	require.NoError(t, err)

	signals, err := strat.GenerateSignals(providerAt(repo, "2024-03-01"), date("2024-03-01"))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestMACrossoverOnlySignalsOnTradingDays(t *testing.T) {
	// Cross happens on Friday; Saturday has no fresh bar, so no re-emission.
	repo := &fakeRepo{bars: map[string][]models.Bar{
		"AAPL": closesEndingIn("AAPL", "2024-03-01", []float64{10, 10, 10, 30}),
	}}

	strat, err := New(models.StrategyConfig{Type: TypeMACrossover, Params: maParams(t, 2, 3)}, []string{"AAPL"})
	require.NoError(t, err)

	provider := providerAt(repo, "2024-03-01")
	signals, err := strat.GenerateSignals(provider, date("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, signals, 1)

	require.NoError(t, provider.AdvanceTime(date("2024-03-02")))
	signals, err = strat.GenerateSignals(provider, date("2024-03-02"))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestMACrossoverParamValidation(t *testing.T) {
	tests := []struct {
		name   string
		params MACrossoverParams
	}{
		{"short not below long", MACrossoverParams{ShortPeriod: 200, LongPeriod: 50, PositionSize: 10}},
		{"equal periods", MACrossoverParams{ShortPeriod: 50, LongPeriod: 50, PositionSize: 10}},
		{"negative period", MACrossoverParams{ShortPeriod: -1, LongPeriod: 50, PositionSize: 10}},
		{"zero position size", MACrossoverParams{ShortPeriod: 50, LongPeriod: 200, PositionSize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.params)
			require.NoError(t, err)
			_, err = New(models.StrategyConfig{Type: TypeMACrossover, Params: raw}, []string{"AAPL"})
			assert.Error(t, err)
		})
	}
}

func TestMACrossoverDefaults(t *testing.T) {
	strat, err := New(models.StrategyConfig{Type: TypeMACrossover}, []string{"AAPL"})
	require.NoError(t, err)

	ma, ok := strat.(*MACrossover)
	require.True(t, ok)
	assert.Equal(t, 50, ma.params.ShortPeriod)
	assert.Equal(t, 200, ma.params.LongPeriod)
	assert.Equal(t, int64(100), ma.params.PositionSize)
}

func TestRegistryUnknownType(t *testing.T) {
	_, err := New(models.StrategyConfig{Type: "nope"}, []string{"AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy type")

	assert.Equal(t, []string{TypeMACrossover}, Types())
}
