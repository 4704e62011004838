// Package methbed reads per-sample CpG methylation BED files, such as those
// produced by biscuit mergecg, into align.SampleTable values.
package methbed

import (
	"fmt"
	"strconv"
)

// Map columns in the methylation BED file to their positions
const (
	Chromosome int = iota
	Start
	End
	Beta
	Coverage
	Context

	NumColumns
)

// Record is one row of a methylation BED file.
type Record struct {
	Chromosome string
	Start      int
	End        int     // Parsed for validation only; not carried into tables
	Beta       float64 // Fraction of methylated reads
	Coverage   int     // Reads spanning the CpG
	Context    string  // Strand-level beta and coverage, e.g. C:0.700:20,G:.:0
}

// ParseRecord converts the six columns of one row into a Record.
func ParseRecord(cols []string) (Record, error) {
	if len(cols) != NumColumns {
		return Record{}, fmt.Errorf("expected %d columns, found %d", NumColumns, len(cols))
	}

	rec := Record{
		Chromosome: cols[Chromosome],
		Context:    cols[Context],
	}

	var err error
	if rec.Start, err = strconv.Atoi(cols[Start]); err != nil || rec.Start < 0 {
		return rec, fmt.Errorf("invalid start %q", cols[Start])
	}

	if rec.End, err = strconv.Atoi(cols[End]); err != nil || rec.End < 0 {
		return rec, fmt.Errorf("invalid end %q", cols[End])
	}

	// NaN fails both comparisons, so it is rejected here too
	if rec.Beta, err = strconv.ParseFloat(cols[Beta], 64); err != nil || !(rec.Beta >= 0 && rec.Beta <= 1) {
		return rec, fmt.Errorf("invalid methylation fraction %q", cols[Beta])
	}

	if rec.Coverage, err = strconv.Atoi(cols[Coverage]); err != nil || rec.Coverage < 0 {
		return rec, fmt.Errorf("invalid coverage %q", cols[Coverage])
	}

	return rec, nil
}
