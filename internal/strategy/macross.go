package strategy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
	"github.com/bobmcallan/kestrel/internal/signals"
)

// TypeMACrossover is the registry name of the moving-average crossover
// strategy.
const TypeMACrossover = "ma_crossover"

// MACrossoverParams configures the moving-average crossover strategy.
type MACrossoverParams struct {
	ShortPeriod   int              `json:"short_period"`
	LongPeriod    int              `json:"long_period"`
	PositionSize  int64            `json:"position_size"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	StopLossDays  *int             `json:"stop_loss_days,omitempty"`
}

// MACrossover emits a buy when the short SMA crosses above the long SMA and
// a sell when it crosses below; at most one signal per symbol per day.
type MACrossover struct {
	params  MACrossoverParams
	symbols []string
}

func newMACrossover(raw json.RawMessage, symbols []string) (interfaces.Strategy, error) {
	params := MACrossoverParams{
		ShortPeriod:  50,
		LongPeriod:   200,
		PositionSize: 100,
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w", TypeMACrossover, err)
		}
	}

	if params.ShortPeriod <= 0 || params.LongPeriod <= 0 {
		return nil, fmt.Errorf("%s periods must be positive (short %d, long %d)",
			TypeMACrossover, params.ShortPeriod, params.LongPeriod)
	}
	if params.ShortPeriod >= params.LongPeriod {
		return nil, fmt.Errorf("%s short period %d must be less than long period %d",
			TypeMACrossover, params.ShortPeriod, params.LongPeriod)
	}
	if params.PositionSize <= 0 {
		return nil, fmt.Errorf("%s position size must be positive, got %d", TypeMACrossover, params.PositionSize)
	}

	return &MACrossover{params: params, symbols: symbols}, nil
}

// Name returns the registry type name.
func (s *MACrossover) Name() string {
	return TypeMACrossover
}

// GenerateSignals evaluates each symbol's crossover state for the current
// day. Symbols without enough history are skipped; a symbol only signals on
// days it actually traded, so a crossover is not re-detected across
// weekends when no new bar arrives.
func (s *MACrossover) GenerateSignals(provider interfaces.MarketProvider, current time.Time) ([]models.Signal, error) {
	var out []models.Signal

	// Window of 2×long calendar days guarantees enough bars in normal data.
	from := current.AddDate(0, 0, -2*s.params.LongPeriod)

	for _, symbol := range s.symbols {
		bars, err := provider.GetHistoricalBars(symbol, from, current)
		if err != nil {
			return nil, err
		}
		if len(bars) < s.params.LongPeriod+1 {
			continue
		}
		if !models.Day(bars[len(bars)-1].Date).Equal(models.Day(current)) {
			continue
		}

		switch signals.DetectCrossover(bars, s.params.ShortPeriod, s.params.LongPeriod) {
		case signals.CrossoverGolden:
			out = append(out, models.Signal{
				Symbol:        symbol,
				Side:          models.SideBuy,
				Quantity:      s.params.PositionSize,
				StopLossPrice: s.params.StopLossPrice,
				StopLossDays:  s.params.StopLossDays,
				Reason:        signals.CrossoverGolden,
			})
		case signals.CrossoverDeath:
			out = append(out, models.Signal{
				Symbol:   symbol,
				Side:     models.SideSell,
				Quantity: s.params.PositionSize,
				Reason:   signals.CrossoverDeath,
			})
		}
	}

	return out, nil
}

var _ interfaces.Strategy = (*MACrossover)(nil)
