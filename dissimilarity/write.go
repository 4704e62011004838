package dissimilarity

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
)

// WriteTSV writes the matrix with sample identifiers as row and column
// labels. The upper triangle is left blank.
func WriteTSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(append([]string{""}, res.Samples...)); err != nil {
		return err
	}

	for i, sample := range res.Samples {
		row := make([]string, 0, len(res.Samples)+1)
		row = append(row, sample)
		for j := range res.Samples {
			v := res.D.At(i, j)
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', Decimals, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
