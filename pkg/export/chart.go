package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/schedpdf/core/stats"
)

// WriteCoverageChart renders an HTML bar chart of how many schools take
// part in each event.
func WriteCoverageChart(w io.Writer, title string, sum stats.Summary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d schools, %d entries", sum.Schools, sum.Entries),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Event"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Schools"}),
	)

	var xAxis []string
	var yAxis []opts.BarData
	for _, ev := range sum.Events {
		xAxis = append(xAxis, ev.Event)
		yAxis = append(yAxis, opts.BarData{Value: ev.Schools})
	}
	bar.SetXAxis(xAxis).AddSeries("Schools", yAxis)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
