package backtest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/kestrel/internal/models"
)

// RenderEquityChart renders a PNG equity curve for a persisted result.
// Two series: Total Equity (blue solid) and Cash (gray dashed).
func (s *Service) RenderEquityChart(ctx context.Context, id string) ([]byte, error) {
	result, err := s.storage.ResultStore().GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	return renderEquityCurve(result.DailySnapshots)
}

func renderEquityCurve(snapshots []models.DailySnapshot) ([]byte, error) {
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(snapshots))
	}

	xValues := make([]time.Time, len(snapshots))
	equityY := make([]float64, len(snapshots))
	cashY := make([]float64, len(snapshots))

	for i, snap := range snapshots {
		xValues[i] = snap.Date
		equityY[i] = snap.TotalEquity.InexactFloat64()
		cashY[i] = snap.Cash.InexactFloat64()
	}

	equitySeries := chart.TimeSeries{
		Name: "Total Equity",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: equityY,
	}

	cashSeries := chart.TimeSeries{
		Name: "Cash",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: cashY,
	}

	graph := chart.Chart{
		Title:  "Backtest Equity",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			equitySeries,
			cashSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
