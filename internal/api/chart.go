package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"github.com/banshee-data/mutant.report/internal/httputil"
	"github.com/banshee-data/mutant.report/internal/stats"
)

// chartConfidence is the level of the interval shown under the chart title.
const chartConfidence = 0.95

// handleStatsChart renders the stored outcome counts as an HTML bar chart.
func (s *Server) handleStatsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	st, err := s.eval.Report(r.Context())
	if err != nil && !errors.Is(err, stats.ErrDivisionUndefined) {
		s.logger.Error("failed to build stats", zap.Error(err))
		httputil.WriteRequestError(w, r, http.StatusInternalServerError, "failed to load stats")
		return
	}

	subtitle := "no samples yet"
	if lo, hi, ierr := st.Interval(chartConfidence); ierr == nil {
		subtitle = fmt.Sprintf("ratio=%.4f  %.0f%% interval [%.4f, %.4f]  at %s",
			st.Ratio, chartConfidence*100, lo, hi, time.Now().UTC().Format(time.RFC3339))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Mutant DNA", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Evaluated DNA", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"Mutant", "Human", "Total"}).
		AddSeries("grids", []opts.BarData{
			{Value: st.Qualifying},
			{Value: st.NonQualifying},
			{Value: st.Total},
		},
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
