package align

import (
	"errors"
	"fmt"
)

var (
	ErrNoTables        = errors.New("no sample tables to merge")
	ErrDuplicateSample = errors.New("sample appears in more than one table")
)

// Merge inner-joins the tables on Key. The result keeps only sites present in
// every table, in the row order of the first table, with one set of columns per
// table in input order. Missing data are never imputed: a site absent from any
// one sample is dropped.
func Merge(tables []*SampleTable) (*MergedTable, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	seen := make(map[string]struct{}, len(tables))
	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("sample table %d is nil", i)
		}
		if _, exists := seen[t.SampleID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSample, t.SampleID)
		}
		seen[t.SampleID] = struct{}{}
	}

	// rows[r] holds, per table, the index of the site matching the first
	// table's r'th surviving key.
	first := tables[0]
	keys := make([]Key, 0, first.Len())
	rows := make([][]int, 0, first.Len())

Sites:
	for i, site := range first.Sites {
		// A repeated key in a literal table is joined once, at its first
		// occurrence
		if idx, _ := first.lookup(site.Key); idx != i {
			continue
		}

		matches := make([]int, len(tables))
		matches[0] = i

		for j := 1; j < len(tables); j++ {
			idx, exists := tables[j].lookup(site.Key)
			if !exists {
				continue Sites
			}
			matches[j] = idx
		}

		keys = append(keys, site.Key)
		rows = append(rows, matches)
	}

	out := &MergedTable{
		Samples: make([]Column, len(tables)),
		Keys:    keys,
		Raw:     make([][]float64, len(tables)),
		MValue:  make([][]float64, len(tables)),
	}

	for j, t := range tables {
		out.Samples[j] = Column{SampleID: t.SampleID, HasMValue: t.HasMValue}

		raw := make([]float64, len(rows))
		var mval []float64
		if t.HasMValue {
			mval = make([]float64, len(rows))
		}

		for r, matches := range rows {
			site := t.Sites[matches[j]]
			raw[r] = site.Raw
			if mval != nil {
				mval[r] = site.MValue
			}
		}

		out.Raw[j] = raw
		out.MValue[j] = mval
	}

	return out, nil
}

func (t *SampleTable) lookup(k Key) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, exists := t.index[k]

	return i, exists
}
