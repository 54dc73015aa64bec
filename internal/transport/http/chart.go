package adminhttp

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"pilot/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// handlePnLChart renders the cumulative realized P&L as an HTML line chart.
// Only terminal trades with a recorded P&L contribute points.
func (r *Router) handlePnLChart(c *gin.Context) {
	snap := r.Store.Snapshot()
	html, err := renderPnLChart(snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func renderPnLChart(l *ledger.Ledger) ([]byte, error) {
	points := pnlPoints(l)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:     types.ThemeWesteros,
			PageTitle: "Cumulative P&L",
			Width:     "1200px",
			Height:    "560px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cumulative realized P&L",
			Subtitle: fmt.Sprintf("%d closed trades, win rate %.1f%%", len(points), ledger.WinRate(l)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "P&L %", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
	)

	xAxis := make([]string, len(points))
	series := make([]opts.LineData, len(points))
	cumulative := 0.0
	for i, p := range points {
		cumulative += p.pnl
		xAxis[i] = p.label
		series[i] = opts.LineData{Value: round2(cumulative)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("cumulative", series,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Smooth: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.15)}),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type pnlPoint struct {
	label string
	pnl   float64
}

// pnlPoints walks trades in ledger order, which is already chronological.
func pnlPoints(l *ledger.Ledger) []pnlPoint {
	points := make([]pnlPoint, 0, len(l.Trades))
	for _, t := range l.Trades {
		if t.PnL == nil {
			continue
		}
		if t.Status != ledger.StatusClosed && t.Status != ledger.StatusStopped {
			continue
		}
		pnl, _ := t.PnL.Float64()
		points = append(points, pnlPoint{
			label: fmt.Sprintf("%s %s", t.Timestamp.Format("01-02 15:04"), t.Symbol),
			pnl:   pnl,
		})
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
