package pca

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/methylseq/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Samples sit on the corners of a 2x1 rectangle in the first two sites; the
// third site never varies.
func table() *align.MergedTable {
	cols := []align.Column{
		{SampleID: "01aE", HasMValue: true},
		{SampleID: "02aS", HasMValue: true},
		{SampleID: "03aE", HasMValue: true},
		{SampleID: "04aS", HasMValue: true},
	}

	return &align.MergedTable{
		Samples: cols,
		Keys:    []align.Key{{Chrom: "chr1", Start: 1}, {Chrom: "chr1", Start: 2}, {Chrom: "chr1", Start: 3}},
		Raw:     [][]float64{{0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}},
		MValue: [][]float64{
			{0, 0, 3},
			{2, 0, 3},
			{0, 1, 3},
			{2, 1, 3},
		},
	}
}

func TestRun(t *testing.T) {
	res, err := Run(table(), DefaultComponents)
	require.NoError(t, err)

	require.Equal(t, 2, res.Components())
	assert.InDelta(t, 0.8, res.Explained[0], 1e-9)
	assert.InDelta(t, 0.2, res.Explained[1], 1e-9)

	r, c := res.Scores.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 2, c)

	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1, math.Abs(res.Scores.At(i, 0)), 1e-9)
		assert.InDelta(t, 0.5, math.Abs(res.Scores.At(i, 1)), 1e-9)
	}

	// Samples that differ only in the second site share a first score
	assert.InDelta(t, res.Scores.At(0, 0), res.Scores.At(2, 0), 1e-9)
	assert.InDelta(t, -res.Scores.At(0, 0), res.Scores.At(1, 0), 1e-9)
}

func TestRunErrors(t *testing.T) {
	raw := table()
	raw.Samples[1].HasMValue = false
	_, err := Run(raw, 2)
	assert.ErrorIs(t, err, ErrNoMValues)

	single := table()
	single.Samples = single.Samples[:1]
	single.MValue = single.MValue[:1]
	_, err = Run(single, 1)
	assert.ErrorIs(t, err, ErrTooFewSamples)

	_, err = Run(table(), 5)
	assert.Error(t, err)
}

func TestOutputs(t *testing.T) {
	res, err := Run(table(), DefaultComponents)
	require.NoError(t, err)

	reg, err := registry.Parse([]byte("WGBS_ID\tcellType\n01aE\tepithelial\n02aS\tstromal\n03aE\tepithelial\n04aS\tstromal\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTSV(&buf, res, reg))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "sample\tPC1\tPC2\tcellType", lines[0])
	assert.True(t, strings.HasSuffix(lines[2], "\tstromal"))

	buf.Reset()
	require.NoError(t, WriteTSV(&buf, res, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "sample\tPC1\tPC2\n"))

	var plot bytes.Buffer
	require.NoError(t, PlotScatter(&plot, res, reg))
	_, err = png.Decode(&plot)
	require.NoError(t, err)
}
