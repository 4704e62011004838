package pca

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/carbocation/methylseq/registry"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// WriteTSV writes one row per sample with its component scores, followed by
// the sample's cellType when reg is not nil.
func WriteTSV(w io.Writer, res *Result, reg *registry.Registry) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{"sample"}
	for c := 0; c < res.Components(); c++ {
		header = append(header, fmt.Sprintf("PC%d", c+1))
	}
	if reg != nil {
		header = append(header, "cellType")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, sample := range res.Samples {
		row := []string{sample}
		for c := 0; c < res.Components(); c++ {
			row = append(row, strconv.FormatFloat(res.Scores.At(i, c), 'g', -1, 64))
		}
		if reg != nil {
			row = append(row, reg.CellType(sample))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

var groupColors = []drawing.Color{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
}

// PlotScatter draws the samples on the first two components, one color per
// cellType, and writes it as PNG.
func PlotScatter(w io.Writer, res *Result, reg *registry.Registry) error {
	if res.Components() < 2 {
		return fmt.Errorf("a scatter plot needs 2 components, have %d", res.Components())
	}

	xs := make(map[string][]float64)
	ys := make(map[string][]float64)
	for i, sample := range res.Samples {
		group := reg.CellType(sample)
		if group == "" {
			group = "unknown"
		}
		xs[group] = append(xs[group], res.Scores.At(i, 0))
		ys[group] = append(ys[group], res.Scores.At(i, 1))
	}

	groups := make([]string, 0, len(xs))
	for group := range xs {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	series := make([]chart.Series, 0, len(groups))
	for i, group := range groups {
		series = append(series, chart.ContinuousSeries{
			Name: group,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    groupColors[i%len(groupColors)],
			},
			XValues: xs[group],
			YValues: ys[group],
		})
	}

	graph := chart.Chart{
		Width:  640,
		Height: 480,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name: fmt.Sprintf("PC1 (%.1f%%)", 100*res.Explained[0]),
		},
		YAxis: chart.YAxis{
			Name: fmt.Sprintf("PC2 (%.1f%%)", 100*res.Explained[1]),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
