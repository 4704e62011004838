// Package registry reads the sample metadata sheet that decides which
// methylation samples take part in an analysis.
package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/methylseq"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
)

// IDColumn is the header of the column holding sample identifiers. Its values
// match the per-sample file names once the file suffix is removed.
const IDColumn = "WGBS_ID"

var (
	ErrMissingIDColumn = errors.New("registry has no " + IDColumn + " column")
	ErrEmpty           = errors.New("registry has no header row")
	ErrDuplicateID     = errors.New("registry lists a sample identifier more than once")
)

// Entry is one row of the registry. The typed fields cover the columns that
// downstream analyses know about; Attributes holds every column verbatim,
// keyed by header.
type Entry struct {
	ID           string `csv:"WGBS_ID"`
	TumorID      string `csv:"tumor_id"`
	Cluster      string `csv:"cluster"`
	Sample       string `csv:"sample"`
	Age          Float  `csv:"age"`
	OSYears      Float  `csv:"os_years"`
	Xtic         string `csv:"xtic"`
	CellType     string `csv:"cellType"`
	Histotype    string `csv:"histotype"`
	AnatomicSite string `csv:"anatomic_site"`
	Site         string `csv:"site"`
	Stage        string `csv:"Stage"`
	StageFull    string `csv:"Stage_full"`
	Grade        Int    `csv:"Grade"`

	Attributes map[string]string `csv:"-"`
}

// Registry is the read-only set of known samples, in file order.
type Registry struct {
	Entries []Entry
	Header  []string

	index map[string]int
}

// Read loads a registry from a local path or a gs:// object. Compressed
// registries are decompressed transparently. The delimiter is detected, with
// tab as the fallback.
func Read(ctx context.Context, path string, client *storage.Client, log logrus.FieldLogger) (*Registry, error) {
	log.WithField("path", path).Info("Reading metadata file")

	data, err := methylseq.ReadAll(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("reading registry %s: %w", path, err))
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.WithField("samples", reg.Len()).Info("Read metadata file")

	return reg, nil
}

// Parse builds a registry from the raw bytes of a delimited file with a header
// row.
func Parse(data []byte) (*Registry, error) {
	delim := methylseq.DetermineDelimiterBytes(data)

	rows, err := newReader(data, delim).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, ErrEmpty
	}

	header := rows[0]
	idCol := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == IDColumn {
			idCol = i
		}
	}
	if idCol < 0 {
		return nil, ErrMissingIDColumn
	}

	entries := make([]Entry, 0, len(rows)-1)
	if err := gocsv.UnmarshalCSV(newReader(data, delim), &entries); err != nil {
		return nil, err
	}
	if len(entries) != len(rows)-1 {
		return nil, fmt.Errorf("parsed %d registry entries from %d data rows", len(entries), len(rows)-1)
	}

	reg := &Registry{
		Entries: make([]Entry, 0, len(entries)),
		Header:  header,
		index:   make(map[string]int, len(entries)),
	}

	for i, entry := range entries {
		row := rows[i+1]

		entry.ID = strings.TrimSpace(row[idCol])
		if entry.ID == "" {
			// Blank identifiers can never match a file
			continue
		}
		if _, exists := reg.index[entry.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
		}

		entry.Attributes = make(map[string]string, len(header))
		for col, name := range header {
			if col < len(row) {
				entry.Attributes[name] = row[col]
			}
		}

		reg.index[entry.ID] = len(reg.Entries)
		reg.Entries = append(reg.Entries, entry)
	}

	return reg, nil
}

func newReader(data []byte, delim rune) *csv.Reader {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.Comment = '#'

	return cr
}

// Len is the number of samples with a usable identifier.
func (r *Registry) Len() int {
	return len(r.Entries)
}

// IDs returns the set of valid sample identifiers.
func (r *Registry) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Entries))
	for _, entry := range r.Entries {
		out[entry.ID] = struct{}{}
	}

	return out
}

// Lookup returns the entry for a sample identifier.
func (r *Registry) Lookup(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}

	i, exists := r.index[id]
	if !exists {
		return Entry{}, false
	}

	return r.Entries[i], true
}

// Attribute returns the named column's value for a sample, or "" when either
// is unknown.
func (r *Registry) Attribute(id, column string) string {
	entry, exists := r.Lookup(id)
	if !exists {
		return ""
	}

	return entry.Attributes[column]
}

// CellType returns the sample's cellType, or "" when it is unknown.
func (r *Registry) CellType(id string) string {
	entry, _ := r.Lookup(id)

	return entry.CellType
}
