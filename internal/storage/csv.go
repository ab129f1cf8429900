package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// indExtension is the file extension for exported daily price series with
// precomputed indicator columns. The symbol is the file's base name.
const indExtension = ".ind"

// LoadBarsFile parses one .ind file into bars for the given symbol.
// Indicator columns are optional; empty cells stay nil on the bar.
func LoadBarsFile(path, symbol string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Open", "High", "Low", "Close", "Volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s is missing required column %q", path, required)
		}
	}

	var bars []models.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		bar, err := parseBarRecord(record, cols, symbol)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseBarRecord(record []string, cols map[string]int, symbol string) (models.Bar, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := models.ParseDate(cell("Date"))
	if err != nil {
		return models.Bar{}, fmt.Errorf("invalid date %q: %w", cell("Date"), err)
	}

	bar := models.Bar{Symbol: symbol, Date: date}

	prices := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"Open", &bar.Open},
		{"High", &bar.High},
		{"Low", &bar.Low},
		{"Close", &bar.Close},
	}
	for _, p := range prices {
		value, err := decimal.NewFromString(cell(p.name))
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid %s %q: %w", p.name, cell(p.name), err)
		}
		*p.dst = value
	}

	bar.AdjClose = bar.Close
	if raw := cell("AdjustedClose"); raw != "" {
		adj, err := decimal.NewFromString(raw)
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid AdjustedClose %q: %w", raw, err)
		}
		bar.AdjClose = adj
	}

	volume, err := strconv.ParseInt(cell("Volume"), 10, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("invalid volume %q: %w", cell("Volume"), err)
	}
	bar.Volume = volume

	indicators := []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"Macd", &bar.Macd},
		{"MacdSignal", &bar.MacdSignal},
		{"MacdHistogram", &bar.MacdHistogram},
		{"Sma50", &bar.Sma50},
		{"Sma200", &bar.Sma200},
		{"VolMA20", &bar.VolMA20},
		{"Rsi14", &bar.Rsi14},
	}
	for _, ind := range indicators {
		raw := cell(ind.name)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return models.Bar{}, fmt.Errorf("invalid %s %q: %w", ind.name, raw, err)
		}
		*ind.dst = &value
	}

	return bar, nil
}

// ImportDir loads every .ind file under dir into the bar store. Returns
// the number of symbols imported.
func ImportDir(ctx context.Context, store interfaces.BarStore, dir string, logger *common.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read import directory %s: %w", dir, err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), indExtension) {
			continue
		}

		symbol := strings.TrimSuffix(entry.Name(), indExtension)
		path := filepath.Join(dir, entry.Name())

		bars, err := LoadBarsFile(path, symbol)
		if err != nil {
			return imported, err
		}
		if err := store.SaveBars(ctx, symbol, bars); err != nil {
			return imported, err
		}

		logger.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("Price series imported")
		imported++
	}

	return imported, nil
}
