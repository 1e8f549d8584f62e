package report

import (
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/bleloc/internal/pipeline"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderTrend writes an HTML line chart of N_eff and mean log-likelihood
// over a run's pose estimates, marking each resample event, to w.
func RenderTrend(w io.Writer, estimates []pipeline.Estimate) error {
	x := make([]string, len(estimates))
	nEff := make([]opts.LineData, len(estimates))
	resamples := make([]opts.LineData, len(estimates))
	logLikelihood := make([]opts.LineData, len(estimates))

	for i, e := range estimates {
		x[i] = e.Timestamp.Format(time.RFC3339Nano)
		nEff[i] = opts.LineData{Value: e.NEff}
		if e.Resampled {
			resamples[i] = opts.LineData{Value: e.NEff}
		} else {
			resamples[i] = opts.LineData{Value: nil}
		}
		logLikelihood[i] = opts.LineData{Value: e.MeanLogLikelihood}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Particle filter trend", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "N_eff over time", Subtitle: fmt.Sprintf("%d estimates", len(estimates))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "timestamp"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "N_eff"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "mean log-likelihood"})
	line.SetXAxis(x).
		AddSeries("n_eff", nEff).
		AddSeries("resampled", resamples, charts.WithLineChartOpts(opts.LineChart{Step: opts.Bool(false)})).
		AddSeries("mean_log_likelihood", logLikelihood, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("report: rendering trend chart: %w", err)
	}
	return nil
}
