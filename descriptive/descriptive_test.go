package descriptive

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

func table() *align.MergedTable {
	return &align.MergedTable{
		Samples: []align.Column{{SampleID: "01aE"}, {SampleID: "02aS"}, {SampleID: "03aE"}},
		Keys: []align.Key{
			{Chrom: "chr1", Start: 1}, {Chrom: "chr1", Start: 2}, {Chrom: "chr1", Start: 3},
			{Chrom: "chr1", Start: 4}, {Chrom: "chr1", Start: 5},
		},
		Raw: [][]float64{
			{0.1, 0.2, 0.3, 0.4, 0.5},
			{1, 1, 1, 0, 0},
			{0.3, 0.4, 0.5, 0.6, 0.7},
		},
	}
}

func TestSummarize(t *testing.T) {
	summaries, err := Summarize(table())
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	s := summaries[0]
	assert.Equal(t, "01aE", s.Sample)
	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 0.1, s.Min, 1e-12)
	assert.InDelta(t, 0.5, s.Max, 1e-12)
	assert.InDelta(t, 0.3, s.Median, 1e-12)
	assert.InDelta(t, 0.3, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.025), s.SD, 1e-12)
	assert.True(t, s.Min <= s.Q1 && s.Q1 <= s.Median && s.Median <= s.Q3 && s.Q3 <= s.Max)

	assert.InDelta(t, 0.6, summaries[1].Mean, 1e-12)
}

func TestSummarizeSingleSite(t *testing.T) {
	summaries, err := Summarize(&align.MergedTable{
		Samples: []align.Column{{SampleID: "01aE"}},
		Keys:    []align.Key{{Chrom: "chr1", Start: 1}},
		Raw:     [][]float64{{0.4}},
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(summaries[0].SD))
	assert.Equal(t, 0.4, summaries[0].Median)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(&align.MergedTable{Samples: []align.Column{{SampleID: "01aE"}}, Raw: [][]float64{nil}})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestWriteSummaryTSV(t *testing.T) {
	summaries, err := Summarize(table())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTSV(&buf, summaries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "sample\tn\tmin\tq1\tmedian\tq3\tmax\tmean\tsd", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "01aE\t5\t0.1\t"))
}

func TestGroupByCellType(t *testing.T) {
	reg, err := registry.Parse([]byte("WGBS_ID\tcellType\n01aE\tepithelial\n02aS\tstromal\n03aE\tepithelial\n"))
	require.NoError(t, err)

	groups := GroupByCellType(table(), reg)
	require.Len(t, groups, 2)

	assert.Equal(t, "epithelial", groups[0].Name)
	assert.Equal(t, []string{"01aE", "03aE"}, groups[0].Samples)
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.4, 0.5, 0.6}, groups[0].Means, 1e-12)

	assert.Equal(t, "stromal", groups[1].Name)
	assert.Equal(t, []float64{1, 1, 1, 0, 0}, groups[1].Means)

	unregistered := GroupByCellType(table(), nil)
	require.Len(t, unregistered, 1)
	assert.Equal(t, UnknownGroup, unregistered[0].Name)
}

func TestDensityIntegratesToOne(t *testing.T) {
	values := []float64{0, 0.01, 0.5, 0.5, 0.99, 1, 1}
	mids, density := Density(values)
	require.Len(t, mids, HistogramBins)
	require.Len(t, density, HistogramBins)

	area := 0.0
	for _, d := range density {
		area += d / HistogramBins
	}
	assert.InDelta(t, 1, area, 1e-6)

	// 0.99 and both fully methylated sites land in the last bin
	assert.InDelta(t, 3.0/7*HistogramBins, density[HistogramBins-1], 1e-6)
}

func TestPlotsProducePNG(t *testing.T) {
	summaries, err := Summarize(table())
	require.NoError(t, err)

	var box bytes.Buffer
	require.NoError(t, PlotBySample(&box, summaries))
	img, err := png.Decode(&box)
	require.NoError(t, err)
	assert.Equal(t, marginLeft+marginRight+boxWidth*3, img.Bounds().Dx())

	reg, err := registry.Parse([]byte("WGBS_ID\tcellType\n01aE\tepithelial\n02aS\tstromal\n03aE\tepithelial\n"))
	require.NoError(t, err)

	var dist bytes.Buffer
	require.NoError(t, PlotByCellType(&dist, table(), reg))
	_, err = png.Decode(&dist)
	require.NoError(t, err)
}

func TestFprintHistogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FprintHistogram(&buf, table()))
	assert.NotEmpty(t, buf.String())

	err := FprintHistogram(&buf, &align.MergedTable{Samples: []align.Column{{SampleID: "01aE"}}, Raw: [][]float64{nil}})
	assert.ErrorIs(t, err, ErrEmptyTable)
}
