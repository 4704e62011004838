// Package dissimilarity compares samples by the cosine dissimilarity of their
// raw methylation values at the most variable aligned sites.
package dissimilarity

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/methylseq/align"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Decimals is the precision that matrix entries are rounded to.
const Decimals = 3

var (
	// ErrTooFewSamples is returned when there is nothing to compare.
	ErrTooFewSamples = errors.New("at least two samples are required")

	// ErrEmptyTable is returned when there are no aligned sites.
	ErrEmptyTable = errors.New("merged table has no sites")
)

// Result is a lower-triangular dissimilarity matrix. D.At(i, j) for i > j is
// 1 - cos(sample i, sample j); the diagonal is 0 and the upper triangle NaN.
type Result struct {
	Samples []string
	Rows    []int // Sites used, most variable first
	D       *mat.Dense
}

// TopVariable returns the indices of the n rows of t whose raw values vary
// the most across samples, by unbiased variance, most variable first. Ties
// keep table order. All rows are returned when n exceeds the table length.
func TopVariable(t *align.MergedTable, n int) ([]int, error) {
	if len(t.Samples) < 2 {
		return nil, ErrTooFewSamples
	}
	if t.Empty() {
		return nil, ErrEmptyTable
	}
	if n < 1 {
		return nil, fmt.Errorf("number of sites must be positive (got %d)", n)
	}

	variance := make([]float64, t.Len())
	for r := range variance {
		variance[r] = stat.Variance(t.Row(r), nil)
	}

	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return variance[idx[a]] > variance[idx[b]]
	})

	if n < len(idx) {
		idx = idx[:n]
	}

	return idx, nil
}

// Compute selects the n most variable sites and compares every pair of
// samples on them.
func Compute(t *align.MergedTable, n int) (*Result, error) {
	rows, err := TopVariable(t, n)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(t.Samples))
	for i := range t.Samples {
		v := make([]float64, len(rows))
		for k, r := range rows {
			v[k] = t.Raw[i][r]
		}
		vectors[i] = v
	}

	return &Result{
		Samples: t.SampleIDs(),
		Rows:    rows,
		D:       Matrix(vectors),
	}, nil
}

// Matrix builds the lower-triangular cosine dissimilarity matrix of the given
// vectors, rounded to Decimals places. A zero vector is treated as
// orthogonal to everything.
func Matrix(vectors [][]float64) *mat.Dense {
	n := len(vectors)
	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = floats.Norm(v, 2)
	}

	scale := math.Pow(10, Decimals)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out.Set(i, j, math.NaN())
		}

		for j := 0; j < i; j++ {
			similarity := 0.0
			if norms[i] > 0 && norms[j] > 0 {
				similarity = floats.Dot(vectors[i], vectors[j]) / (norms[i] * norms[j])
			}

			d := math.Min(math.Max(1-similarity, 0), 2)
			out.Set(i, j, math.RoundToEven(d*scale)/scale)
		}
	}

	return out
}
