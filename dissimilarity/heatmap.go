package dissimilarity

import (
	"image/color"
	"io"
	"math"
	"strconv"

	"github.com/fogleman/gg"
)

const (
	cellSize = 48
	labelPad = 70

	// AnnotateBelow is the sample count under which each cell is labeled
	// with its value.
	AnnotateBelow = 10
)

// PlotHeatmap draws the matrix as PNG. Darker cells are more dissimilar; the
// blank upper triangle is white.
func PlotHeatmap(w io.Writer, res *Result) error {
	n := len(res.Samples)
	if n == 0 {
		return ErrTooFewSamples
	}

	maxValue := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			maxValue = math.Max(maxValue, res.D.At(i, j))
		}
	}
	if maxValue == 0 {
		maxValue = 1
	}

	size := labelPad + n*cellSize + 10
	dc := gg.NewContext(size, size)
	dc.SetColor(color.White)
	dc.Clear()

	for i := 0; i < n; i++ {
		y := float64(labelPad + i*cellSize)

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(res.Samples[i], labelPad-6, y+cellSize/2, 1, 0.5)

		dc.Push()
		x := float64(labelPad + i*cellSize + cellSize/2)
		dc.RotateAbout(gg.Radians(-90), x, labelPad-6)
		dc.DrawStringAnchored(res.Samples[i], x, labelPad-6, 0, 0.5)
		dc.Pop()

		for j := 0; j < n; j++ {
			v := res.D.At(i, j)
			if math.IsNaN(v) {
				continue
			}

			x := float64(labelPad + j*cellSize)
			shade := 1 - 0.85*v/maxValue
			dc.DrawRectangle(x, y, cellSize, cellSize)
			dc.SetRGB(shade, shade, 1)
			dc.Fill()

			if n < AnnotateBelow {
				if shade < 0.5 {
					dc.SetColor(color.White)
				} else {
					dc.SetColor(color.Black)
				}
				dc.DrawStringAnchored(strconv.FormatFloat(v, 'f', Decimals, 64), x+cellSize/2, y+cellSize/2, 0.5, 0.5)
			}
		}
	}

	return dc.EncodePNG(w)
}
