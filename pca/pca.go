// Package pca projects samples onto the principal components of their
// M-values.
package pca

import (
	"errors"
	"fmt"

	"github.com/carbocation/methylseq/align"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultComponents is the number of components kept for plotting.
const DefaultComponents = 2

var (
	// ErrNoMValues is returned for tables loaded without the M-value
	// transform.
	ErrNoMValues = errors.New("merged table carries no M-values")

	// ErrTooFewSamples is returned when fewer than two samples are supplied.
	ErrTooFewSamples = errors.New("at least two samples are required")
)

// Result holds the projection of each sample onto the leading components.
type Result struct {
	Samples []string
	// Scores is samples × components.
	Scores *mat.Dense
	// Explained is the fraction of total variance captured by each kept
	// component.
	Explained []float64
}

// Components is the number of kept components.
func (r *Result) Components() int {
	return len(r.Explained)
}

// Run treats samples as observations and aligned sites as variables,
// centers each site, and keeps the first k components.
func Run(t *align.MergedTable, k int) (*Result, error) {
	if !t.HasMValue() {
		return nil, ErrNoMValues
	}

	n, d := len(t.Samples), t.Len()
	if n < 2 {
		return nil, ErrTooFewSamples
	}
	if k < 1 || k > n || k > d {
		return nil, fmt.Errorf("cannot keep %d components from %d samples and %d sites", k, n, d)
	}

	data := mat.NewDense(n, d, nil)
	for i := range t.Samples {
		data.SetRow(i, t.MValue[i])
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("principal component decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	vars := pc.VarsTo(nil)

	// Center before projecting
	centered := mat.DenseCopyOf(data)
	for j := 0; j < d; j++ {
		col := mat.Col(nil, j, centered)
		mean := stat.Mean(col, nil)
		floats.AddConst(-mean, col)
		centered.SetCol(j, col)
	}

	var scores mat.Dense
	scores.Mul(centered, vectors.Slice(0, d, 0, k))

	total := floats.Sum(vars)
	explained := make([]float64, k)
	for i := range explained {
		if total > 0 {
			explained[i] = vars[i] / total
		}
	}

	return &Result{
		Samples:   t.SampleIDs(),
		Scores:    &scores,
		Explained: explained,
	}, nil
}
