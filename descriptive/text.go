package descriptive

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/methylseq/align"
)

// TextHistogramBins is the bucket count of FprintHistogram.
const TextHistogramBins = 20

// FprintHistogram writes a plain-text histogram of every raw value in t,
// pooled across samples.
func FprintHistogram(w io.Writer, t *align.MergedTable) error {
	if t.Empty() {
		return ErrEmptyTable
	}

	pooled := make([]float64, 0, t.Len()*len(t.Samples))
	for _, raw := range t.Raw {
		pooled = append(pooled, raw...)
	}

	return histogram.Fprint(w, histogram.Hist(TextHistogramBins, pooled), histogram.Linear(40))
}
