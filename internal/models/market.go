// Package models defines data structures for Kestrel
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents a single day's price data for a symbol, with optional
// precomputed indicators. Bars are immutable once loaded; indicator fields
// are nil when the source data carried no value.
type Bar struct {
	Symbol   string          `json:"symbol"`
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adjusted_close"`
	Volume   int64           `json:"volume"`

	Macd          *decimal.Decimal `json:"macd,omitempty"`
	MacdSignal    *decimal.Decimal `json:"macd_signal,omitempty"`
	MacdHistogram *decimal.Decimal `json:"macd_histogram,omitempty"`
	Sma50         *decimal.Decimal `json:"sma_50,omitempty"`
	Sma200        *decimal.Decimal `json:"sma_200,omitempty"`
	VolMA20       *decimal.Decimal `json:"vol_ma_20,omitempty"`
	Rsi14         *decimal.Decimal `json:"rsi_14,omitempty"`
}

// DateLayout is the calendar date format used throughout the engine.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Day truncates a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
