package monitor

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderTrafficChart renders history as an HTML page with two line charts:
// packet rates per interval, and translate latency.
func RenderTrafficChart(title string, history []StatsSnapshot) ([]byte, error) {
	labels := make([]string, len(history))
	received := make([]opts.LineData, len(history))
	translated := make([]opts.LineData, len(history))
	rejected := make([]opts.LineData, len(history))
	dropped := make([]opts.LineData, len(history))
	p50 := make([]opts.LineData, len(history))
	p99 := make([]opts.LineData, len(history))

	for i, snap := range history {
		labels[i] = snap.Timestamp.Format("15:04:05")
		secs := snap.Interval.Seconds()
		perSec := func(n int64) float64 {
			if secs <= 0 {
				return 0
			}
			return float64(n) / secs
		}
		received[i] = opts.LineData{Value: snap.PacketsPerSec}
		translated[i] = opts.LineData{Value: perSec(snap.Translated)}
		rejected[i] = opts.LineData{Value: perSec(snap.Rejected())}
		dropped[i] = opts.LineData{Value: perSec(snap.ForwardDropped)}
		p50[i] = opts.LineData{Value: float64(snap.P50) / float64(time.Microsecond)}
		p99[i] = opts.LineData{Value: float64(snap.P99) / float64(time.Microsecond)}
	}

	subtitle := "no intervals recorded yet"
	if n := len(history); n > 0 {
		subtitle = fmt.Sprintf("%d intervals, last %s", n, history[n-1].Timestamp.Format(time.RFC3339))
	}

	rates := charts.NewLine()
	rates.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "packets/s"}),
	)
	rates.SetXAxis(labels).
		AddSeries("received", received).
		AddSeries("translated", translated).
		AddSeries("rejected", rejected).
		AddSeries("dropped on forward", dropped)

	latency := charts.NewLine()
	latency.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Translate latency"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "µs"}),
	)
	latency.SetXAxis(labels).
		AddSeries("p50", p50).
		AddSeries("p99", p99)

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(rates, latency)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
