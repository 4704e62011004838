// Package descriptive summarizes the raw methylation values of each sample
// in a merged table.
package descriptive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/carbocation/methylseq/align"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyTable is returned when there are no aligned sites to describe.
var ErrEmptyTable = errors.New("merged table has no sites")

// Summary describes the distribution of one sample's raw values.
type Summary struct {
	Sample string
	N      int
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
	Mean   float64
	SD     float64 // Sample standard deviation; NaN for a single site
}

// Summarize describes every sample of t in column order.
func Summarize(t *align.MergedTable) ([]Summary, error) {
	if t.Empty() {
		return nil, ErrEmptyTable
	}

	out := make([]Summary, 0, len(t.Samples))
	for i, col := range t.Samples {
		s, err := summarize(col.SampleID, t.Raw[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", col.SampleID, err)
		}
		out = append(out, s)
	}

	return out, nil
}

func summarize(sample string, values []float64) (Summary, error) {
	out := Summary{Sample: sample, N: len(values)}

	var err error
	if out.Mean, err = stats.Mean(values); err != nil {
		return out, err
	}
	if out.Min, err = stats.Min(values); err != nil {
		return out, err
	}
	if out.Max, err = stats.Max(values); err != nil {
		return out, err
	}
	if out.Median, err = stats.Median(values); err != nil {
		return out, err
	}

	out.SD = math.NaN()
	if len(values) > 1 {
		if out.SD, err = stats.StandardDeviationSample(values); err != nil {
			return out, err
		}
	}

	// stat.Quantile needs sorted input
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out.Q1 = stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	out.Q3 = stat.Quantile(0.75, stat.LinInterp, sorted, nil)

	return out, nil
}

// WriteSummaryTSV writes one row per sample with a header.
func WriteSummaryTSV(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{"sample", "n", "min", "q1", "median", "q3", "max", "mean", "sd"}); err != nil {
		return err
	}

	for _, s := range summaries {
		row := []string{s.Sample, strconv.Itoa(s.N)}
		for _, v := range []float64{s.Min, s.Q1, s.Median, s.Q3, s.Max, s.Mean, s.SD} {
			row = append(row, strconv.FormatFloat(v, 'g', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
