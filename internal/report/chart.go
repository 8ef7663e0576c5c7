package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nar-st/motortest/internal/motortest"
)

// WriteHTML renders rec's thrust curve as a standalone interactive page with
// the same title, axes and thrust bound as the PNG plot.
func WriteHTML(w io.Writer, rec *motortest.TestRecord, po PlotOptions) error {
	pts := curveXYs(rec.Result)
	data := make([]opts.LineData, len(pts))
	for i, p := range pts {
		data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
	}

	m := metrics(rec)
	title := rec.Header.MotorType.Or("")
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title + " thrust curve", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("%s  total impulse %s Ns  burn time %s s  %s",
				rec.BaseName(), FormatFloat(m.TotalImpulse), FormatFloat(m.BurnTime), rec.Verdict()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (sec)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: po.YMax, Name: "Thrust (N)", NameLocation: "middle", NameGap: 30}),
	)
	line.AddSeries("thrust", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
