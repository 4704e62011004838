package methbed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/carbocation/methylseq"
	"github.com/carbocation/methylseq/align"
	"github.com/carbocation/runningvariance"
)

// ErrDuplicateSite is returned when a file lists the same CpG twice among the
// rows that pass the filters.
var ErrDuplicateSite = errors.New("duplicate CpG site")

// checkEvery is how many rows are parsed between context checks.
const checkEvery = 4096

// Stats counts what happened to the rows of one file. A row can fail both
// filters, so LowCoverage+NonCanonical may exceed Dropped.
type Stats struct {
	Rows         int
	LowCoverage  int
	NonCanonical int
	Kept         int

	// Coverage accumulates the read depth of kept rows.
	Coverage runningvariance.RunningStat
}

// Dropped is the number of rows removed by the filters.
func (s Stats) Dropped() int {
	return s.Rows - s.Kept
}

// SampleName derives the sample identifier from a file path by removing the
// directory and the suffix.
func SampleName(filePath, suffix string) string {
	base := filepath.Base(filePath)
	if methylseq.IsGoogleStorage(filePath) {
		base = path.Base(filePath)
	}

	return strings.TrimSuffix(base, suffix)
}

// Load reads one sample's methylation BED file from a local path or a gs://
// object. Compressed files are decompressed transparently. Errors do not
// repeat the path; callers juggling many files should add it.
func Load(ctx context.Context, filePath string, opts Options) (*align.SampleTable, Stats, error) {
	f, err := methylseq.OpenDecompressed(ctx, filePath, opts.Storage)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	return Parse(ctx, f, SampleName(filePath, opts.Suffix), opts)
}

// Parse reads tab-delimited rows of six columns (chromosome, start, end,
// beta, coverage, context; no header), drops rows below the coverage
// threshold or off the canonical chromosomes, and indexes the survivors by
// (chromosome, start).
func Parse(ctx context.Context, r io.Reader, sampleID string, opts Options) (*align.SampleTable, Stats, error) {
	stats := Stats{Coverage: *runningvariance.NewRunningStat()}

	if err := opts.Validate(); err != nil {
		return nil, stats, err
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = NumColumns
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	table := align.NewSampleTable(sampleID, opts.Transform == TransformMValue)

	for line := 1; ; line++ {
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		cols, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, stats, err
		}
		stats.Rows++

		rec, err := ParseRecord(cols)
		if err != nil {
			return nil, stats, fmt.Errorf("line %d: %w", line, err)
		}

		keep := true
		if rec.Coverage < opts.MinCoverage {
			stats.LowCoverage++
			keep = false
		}
		if !strings.HasPrefix(rec.Chromosome, opts.ChromPrefix) {
			stats.NonCanonical++
			keep = false
		}
		if !keep {
			continue
		}

		site := align.Site{
			Key: align.Key{Chrom: rec.Chromosome, Start: rec.Start},
			Raw: rec.Beta,
		}
		if table.HasMValue {
			site.MValue = MValue(rec.Beta, rec.Coverage, opts.PseudoCount)
		}

		if !table.Add(site) {
			return nil, stats, fmt.Errorf("line %d: %w %s", line, ErrDuplicateSite, site.Key)
		}
		stats.Kept++
		stats.Coverage.Push(float64(rec.Coverage))
	}

	return table, stats, nil
}
