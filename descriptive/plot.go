package descriptive

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/registry"
	"github.com/fogleman/gg"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	boxYMax      = 1.05
	boxWidth     = 60
	boxHeight    = 420
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 30
	marginBottom = 90

	// HistogramBins is the number of equal-width bins spanning [0, 1].
	HistogramBins = 40
)

// PlotBySample draws one box per sample, whiskers at the minimum and
// maximum, on a fixed y axis from 0 to 1.05, and writes it as PNG.
func PlotBySample(w io.Writer, summaries []Summary) error {
	if len(summaries) == 0 {
		return ErrEmptyTable
	}

	width := marginLeft + marginRight + boxWidth*len(summaries)
	height := marginTop + marginBottom + boxHeight

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	y := func(v float64) float64 {
		return float64(marginTop) + (1-v/boxYMax)*boxHeight
	}

	// Axis and ticks
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, y(0), marginLeft, y(boxYMax))
	dc.Stroke()
	for _, tick := range []float64{0, 0.25, 0.5, 0.75, 1} {
		dc.DrawLine(marginLeft-4, y(tick), marginLeft, y(tick))
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", tick), marginLeft-6, y(tick), 1, 0.5)
	}
	dc.DrawStringAnchored("Methylation", float64(width)/2, float64(marginTop)/2, 0.5, 0.5)

	for i, s := range summaries {
		center := float64(marginLeft + boxWidth*i + boxWidth/2)
		half := float64(boxWidth) * 0.3

		// Whiskers
		dc.SetColor(color.Black)
		dc.DrawLine(center, y(s.Min), center, y(s.Q1))
		dc.DrawLine(center, y(s.Q3), center, y(s.Max))
		dc.DrawLine(center-half/2, y(s.Min), center+half/2, y(s.Min))
		dc.DrawLine(center-half/2, y(s.Max), center+half/2, y(s.Max))
		dc.Stroke()

		// Box
		dc.DrawRectangle(center-half, y(s.Q3), 2*half, y(s.Q1)-y(s.Q3))
		dc.SetRGB(0.55, 0.71, 0.85)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.Stroke()

		// Median
		dc.SetLineWidth(2)
		dc.DrawLine(center-half, y(s.Median), center+half, y(s.Median))
		dc.Stroke()
		dc.SetLineWidth(1)

		dc.Push()
		dc.RotateAbout(gg.Radians(-45), center, y(0)+12)
		dc.DrawStringAnchored(s.Sample, center, y(0)+12, 1, 0.5)
		dc.Pop()
	}

	return dc.EncodePNG(w)
}

// Density bins values into HistogramBins equal-width bins over [0, 1] and
// scales the counts so that the area under the curve is 1. It returns the bin
// midpoints and densities.
func Density(values []float64) (mids, density []float64) {
	dividers := make([]float64, HistogramBins+1)
	floats.Span(dividers, 0, 1)
	// The last bin is closed so that fully methylated sites are counted
	dividers[HistogramBins] = 1 + 1e-9

	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= 0 && v <= 1 {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)

	counts := make([]float64, HistogramBins)
	if len(sorted) > 0 {
		stat.Histogram(counts, dividers, sorted, nil)
	}

	mids = make([]float64, HistogramBins)
	density = make([]float64, HistogramBins)
	binWidth := 1.0 / HistogramBins
	for i := range counts {
		mids[i] = (dividers[i] + dividers[i+1]) / 2
		if len(sorted) > 0 {
			density[i] = counts[i] / (float64(len(sorted)) * binWidth)
		}
	}

	return mids, density
}

var groupColors = []drawing.Color{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
}

// PlotByCellType draws the distribution of per-site mean methylation for
// each cellType in reg as a density curve, and writes it as PNG.
func PlotByCellType(w io.Writer, t *align.MergedTable, reg *registry.Registry) error {
	if t.Empty() {
		return ErrEmptyTable
	}

	series := make([]chart.Series, 0)
	for i, g := range GroupByCellType(t, reg) {
		mids, density := Density(g.Means)
		series = append(series, chart.ContinuousSeries{
			Name: fmt.Sprintf("%s (n=%d)", g.Name, len(g.Samples)),
			Style: chart.Style{
				StrokeColor: groupColors[i%len(groupColors)],
				StrokeWidth: 2,
			},
			XValues: mids,
			YValues: density,
		})
	}

	graph := chart.Chart{
		Width:  640,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Mean methylation",
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		YAxis: chart.YAxis{
			Name: "Density",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
