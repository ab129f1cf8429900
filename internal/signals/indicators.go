// Package signals provides technical indicator calculations
package signals

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/models"
)

// Crossover classifications returned by DetectCrossover.
const (
	CrossoverNone   = "none"
	CrossoverGolden = "golden_cross"
	CrossoverDeath  = "death_cross"
)

// SMA calculates the Simple Moving Average of closes over the last period
// bars. Bars are ordered oldest first. Returns zero when there is not
// enough data.
func SMA(bars []models.Bar, period int) decimal.Decimal {
	if period <= 0 || len(bars) < period {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, b := range bars[len(bars)-period:] {
		sum = sum.Add(b.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// AverageVolume calculates average volume over the last period bars.
func AverageVolume(bars []models.Bar, period int) int64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	var sum int64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return sum / int64(period)
}

// DetectCrossover detects SMA crossovers on the most recent bar.
// Returns "golden_cross", "death_cross", or "none". Needs longPeriod+1 bars
// so the previous day's averages are fully formed.
func DetectCrossover(bars []models.Bar, shortPeriod, longPeriod int) string {
	if len(bars) < longPeriod+1 {
		return CrossoverNone
	}

	// Current values
	shortSMA := SMA(bars, shortPeriod)
	longSMA := SMA(bars, longPeriod)

	// Previous values (drop the newest bar)
	prev := bars[:len(bars)-1]
	prevShortSMA := SMA(prev, shortPeriod)
	prevLongSMA := SMA(prev, longPeriod)

	// Golden cross: short crosses above long
	if prevShortSMA.LessThanOrEqual(prevLongSMA) && shortSMA.GreaterThan(longSMA) {
		return CrossoverGolden
	}

	// Death cross: short crosses below long
	if prevShortSMA.GreaterThanOrEqual(prevLongSMA) && shortSMA.LessThan(longSMA) {
		return CrossoverDeath
	}

	return CrossoverNone
}
