// Package align holds per-sample methylation tables and joins them into a
// single table of CpG sites shared by every sample.
package align

import "fmt"

// Key identifies one CpG site.
type Key struct {
	Chrom string
	Start int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Chrom, k.Start)
}

// Site is one retained measurement for a sample.
type Site struct {
	Key
	Raw    float64 // Fraction of methylated reads, in [0, 1]
	MValue float64 // Pseudo-count stabilized logit of Raw; only meaningful when the table HasMValue
}

// SampleTable is the set of sites measured in one sample, in input order. A
// key appears at most once.
type SampleTable struct {
	SampleID  string
	HasMValue bool
	Sites     []Site

	index map[Key]int
}

// NewSampleTable creates an empty table for a sample.
func NewSampleTable(sampleID string, hasMValue bool) *SampleTable {
	return &SampleTable{
		SampleID:  sampleID,
		HasMValue: hasMValue,
		Sites:     make([]Site, 0),
		index:     make(map[Key]int),
	}
}

// Add appends a site. It returns false, leaving the table unchanged, if the
// key is already present.
func (t *SampleTable) Add(s Site) bool {
	if t.index == nil {
		t.reindex()
	}
	if _, exists := t.index[s.Key]; exists {
		return false
	}

	t.index[s.Key] = len(t.Sites)
	t.Sites = append(t.Sites, s)

	return true
}

// Get returns the site stored under k.
func (t *SampleTable) Get(k Key) (Site, bool) {
	i, exists := t.lookup(k)
	if !exists {
		return Site{}, false
	}

	return t.Sites[i], true
}

// Len is the number of sites in the table.
func (t *SampleTable) Len() int {
	return len(t.Sites)
}

// Keys returns the table's keys in row order.
func (t *SampleTable) Keys() []Key {
	out := make([]Key, len(t.Sites))
	for i, s := range t.Sites {
		out[i] = s.Key
	}

	return out
}

// reindex supports tables built as literals rather than through Add. With
// duplicate keys the first occurrence wins.
func (t *SampleTable) reindex() {
	t.index = make(map[Key]int, len(t.Sites))
	for i, s := range t.Sites {
		if _, exists := t.index[s.Key]; !exists {
			t.index[s.Key] = i
		}
	}
}

// Column describes the values one sample contributes to a MergedTable.
type Column struct {
	SampleID  string
	HasMValue bool
}

// RawName is the header used for the sample's raw value column.
func (c Column) RawName() string {
	return c.SampleID + RawSuffix
}

// MValueName is the header used for the sample's M-value column.
func (c Column) MValueName() string {
	return c.SampleID + MValueSuffix
}

// MergedTable holds the sites present in every sample. Values are stored
// per sample: Raw[i][r] is sample i's raw value at Keys[r]. MValue[i] is nil
// for samples loaded without the transform.
type MergedTable struct {
	Samples []Column
	Keys    []Key
	Raw     [][]float64
	MValue  [][]float64
}

// Len is the number of aligned sites.
func (m *MergedTable) Len() int {
	return len(m.Keys)
}

// Empty reports whether the join left no aligned sites. This is a valid
// outcome, distinct from a failed merge.
func (m *MergedTable) Empty() bool {
	return len(m.Keys) == 0
}

// SampleIDs returns the sample identifiers in column order.
func (m *MergedTable) SampleIDs() []string {
	out := make([]string, len(m.Samples))
	for i, c := range m.Samples {
		out[i] = c.SampleID
	}

	return out
}

// HasMValue reports whether every sample carries M-values.
func (m *MergedTable) HasMValue() bool {
	if len(m.Samples) == 0 {
		return false
	}
	for _, c := range m.Samples {
		if !c.HasMValue {
			return false
		}
	}

	return true
}

// Row returns the raw values of every sample at row r.
func (m *MergedTable) Row(r int) []float64 {
	out := make([]float64, len(m.Samples))
	for i := range m.Samples {
		out[i] = m.Raw[i][r]
	}

	return out
}
