package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/nar-st/motortest/internal/motortest"
)

// PlotOptions sets the fixed thrust axis of the curve plots.
type PlotOptions struct {
	YMax  float64 // upper thrust bound, N
	YStep float64 // major tick and grid spacing, N
}

// Plot image size.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// curveXYs pairs the trimmed curve with its timestamps.
func curveXYs(res *motortest.ReductionResult) plotter.XYs {
	if res == nil {
		return plotter.XYs{{X: 0, Y: 0}}
	}
	n := min(len(res.Times), len(res.TrimmedSamples))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: res.Times[i], Y: res.TrimmedSamples[i]}
	}
	return pts
}

// yTicks returns major ticks every step from 0 up to (not including) top,
// with an unlabelled minor tick halfway between.
func yTicks(top, step float64) []plot.Tick {
	if step <= 0 {
		return nil
	}
	var ticks []plot.Tick
	for v := 0.0; v < top; v += step {
		ticks = append(ticks, plot.Tick{Value: v, Label: FormatTick(v)})
		if mid := v + step/2; mid < top {
			ticks = append(ticks, plot.Tick{Value: mid})
		}
	}
	return ticks
}

// FormatTick prints an axis value without a trailing ".0".
func FormatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return FormatFloat(v)
}

// ThrustPlot builds the thrust-vs-time plot of rec: titled with the motor
// type, thrust capped at opts.YMax, major and minor grid lines.
func ThrustPlot(rec *motortest.TestRecord, opts PlotOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = rec.Header.MotorType.Or("")
	p.X.Label.Text = "Time (sec)"
	p.Y.Label.Text = "Thrust (N)"

	pts := curveXYs(rec.Result)
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("thrust line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1.5)

	p.Y.Min = 0
	p.Y.Max = opts.YMax
	if _, _, lo, _ := plotter.XYRange(pts); lo < 0 {
		p.Y.Min = math.Floor(lo)
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks(opts.YMax, opts.YStep))

	major := plotter.NewGrid()
	major.Horizontal.Color = color.Gray{Y: 176}
	major.Vertical.Color = color.Gray{Y: 176}
	p.Add(&minorGrid{Style: draw.LineStyle{
		Color:  color.Gray{Y: 224},
		Width:  vg.Points(0.25),
		Dashes: []vg.Length{vg.Points(2), vg.Points(2)},
	}}, major, line)
	return p, nil
}

// WritePNG renders the thrust plot of rec as PNG.
func WritePNG(w io.Writer, rec *motortest.TestRecord, opts PlotOptions) error {
	p, err := ThrustPlot(rec, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// minorGrid draws lines at the minor ticks of both axes; plotter.Grid only
// draws the major ones.
type minorGrid struct {
	Style draw.LineStyle
}

func (g *minorGrid) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, t := range plt.X.Tick.Marker.Ticks(plt.X.Min, plt.X.Max) {
		if !t.IsMinor() || t.Value < plt.X.Min || t.Value > plt.X.Max {
			continue
		}
		x := trX(t.Value)
		c.StrokeLine2(g.Style, x, c.Min.Y, x, c.Max.Y)
	}
	for _, t := range plt.Y.Tick.Marker.Ticks(plt.Y.Min, plt.Y.Max) {
		if !t.IsMinor() || t.Value < plt.Y.Min || t.Value > plt.Y.Max {
			continue
		}
		y := trY(t.Value)
		c.StrokeLine2(g.Style, c.Min.X, y, c.Max.X, y)
	}
}
