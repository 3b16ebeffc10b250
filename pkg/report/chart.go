package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteActivityChart renders an HTML bar chart of the byte change counters,
// one group per identifier and one series per byte position.
func WriteActivityChart(w io.Writer, title string, srcs []Source) error {
	ids := make([]string, len(srcs))
	for i, s := range srcs {
		ids[i] = fmt.Sprintf("0x%03X", s.ID())
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d identifiers", len(srcs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ID"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "changes"}),
	)
	bar.SetXAxis(ids)
	for b := 0; b < 8; b++ {
		data := make([]opts.BarData, len(srcs))
		for i, s := range srcs {
			data[i] = opts.BarData{Value: s.ChangeCount(b)}
		}
		bar.AddSeries(fmt.Sprintf("B%d", b), data)
	}
	return bar.Render(w)
}
