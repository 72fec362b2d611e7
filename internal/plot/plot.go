// Package plot renders coverage time series as standalone HTML charts.
package plot

import (
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/covspect/covspect/internal/service"
)

const (
	chartWidth  = "1100px"
	chartHeight = "520px"
	lineWidth   = 2
)

// History builds a line chart of coverage percent over push dates. Each
// point is named after its changeset so the tooltip identifies it.
func History(title, subtitle string, series []service.HistoryPoint) *charts.Line {
	labels := make([]string, len(series))
	data := make([]opts.LineData, len(series))
	for i, point := range series {
		labels[i] = time.Unix(point.Date, 0).UTC().Format("2006-01-02")
		data[i] = opts.LineData{Name: point.Changeset, Value: point.Coverage}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "push date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "coverage %", Min: 0, Max: 100}),
	)
	line.SetXAxis(labels)
	line.AddSeries("coverage", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
	)
	return line
}

// WriteHistory renders the history chart as a self-contained HTML
// document at path.
func WriteHistory(path, title, subtitle string, series []service.HistoryPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}

	if err := History(title, subtitle, series).Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write chart file: %w", err)
	}
	return nil
}
