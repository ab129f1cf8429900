package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/kestrel/internal/common"
)

const sampleInd = `Date,Open,High,Low,Close,AdjustedClose,Volume,Macd,MacdSignal,MacdHistogram,Sma200,Sma50,VolMA20,Rsi14
2024-01-02,100.0,102.0,99.0,101.5,101.5,50000,0.5,0.4,0.1,95.0,98.0,45000,55.2
2024-01-03,101.5,103.0,101.0,102.0,102.0,48000,,,,,,,
`

func writeInd(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBarsFile(t *testing.T) {
	path := writeInd(t, t.TempDir(), "AAPL.ind", sampleInd)

	bars, err := LoadBarsFile(path, "AAPL")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, "AAPL", first.Symbol)
	assert.Equal(t, date("2024-01-02"), first.Date)
	assert.Equal(t, "101.5", first.Close.String())
	assert.Equal(t, int64(50000), first.Volume)
	require.NotNil(t, first.Macd)
	assert.Equal(t, "0.5", first.Macd.String())
	require.NotNil(t, first.Sma50)
	assert.Equal(t, "98", first.Sma50.String())

	// Empty indicator cells stay nil.
	second := bars[1]
	assert.Nil(t, second.Macd)
	assert.Nil(t, second.Rsi14)
	assert.Equal(t, "102", second.AdjClose.String())
}

func TestLoadBarsFileWithoutIndicatorColumns(t *testing.T) {
	content := "Date,Open,High,Low,Close,Volume\n2024-01-02,1,1,1,1,100\n"
	path := writeInd(t, t.TempDir(), "BARE.ind", content)

	bars, err := LoadBarsFile(path, "BARE")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Nil(t, bars[0].Macd)
	// AdjustedClose defaults to Close when absent.
	assert.True(t, bars[0].AdjClose.Equal(bars[0].Close))
}

func TestLoadBarsFileErrors(t *testing.T) {
	dir := t.TempDir()

	missing := writeInd(t, dir, "M.ind", "Open,High,Low,Close,Volume\n")
	_, err := LoadBarsFile(missing, "M")
	assert.ErrorContains(t, err, "missing required column")

	badDate := writeInd(t, dir, "D.ind", "Date,Open,High,Low,Close,Volume\nnot-a-date,1,1,1,1,100\n")
	_, err = LoadBarsFile(badDate, "D")
	assert.ErrorContains(t, err, "invalid date")

	badPrice := writeInd(t, dir, "P.ind", "Date,Open,High,Low,Close,Volume\n2024-01-02,1,1,1,junk,100\n")
	_, err = LoadBarsFile(badPrice, "P")
	assert.ErrorContains(t, err, "invalid Close")
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeInd(t, dir, "AAPL.ind", sampleInd)
	writeInd(t, dir, "MSFT.ind", sampleInd)
	writeInd(t, dir, "notes.txt", "ignore me")

	store := NewMemoryBarStore()
	count, err := ImportDir(context.Background(), store, dir, common.NewSilentLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	symbols, err := store.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	bars, err := store.LoadAllBars("MSFT")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, "MSFT", bars[0].Symbol)
}
