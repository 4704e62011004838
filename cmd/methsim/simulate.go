package main

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/carbocation/methylseq"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simulation parameters for every site: coverage is drawn from a normal
// distribution (floored at 1) and the methylated read count from a binomial.
const (
	CoverageMean   = 20
	CoverageSD     = 5
	MethylatedProb = 0.7
)

type CpG struct {
	Chrom string
	Start int
	End   int
}

type Simulator struct {
	rng      *rand.Rand
	coverage distuv.Normal
}

func NewSimulator(seed uint64) *Simulator {
	rng := rand.New(rand.NewPCG(seed, seed))

	return &Simulator{
		rng: rng,
		coverage: distuv.Normal{
			Mu:    CoverageMean,
			Sigma: CoverageSD,
			Src:   rng,
		},
	}
}

// Coverage draws a read depth of at least 1.
func (s *Simulator) Coverage() int {
	c := int(s.coverage.Rand())
	if c < 1 {
		c = 1
	}

	return c
}

// Beta draws the methylated fraction of coverage reads, rounded to three
// decimals.
func (s *Simulator) Beta(coverage int) float64 {
	methylated := distuv.Binomial{N: float64(coverage), P: MethylatedProb, Src: s.rng}.Rand()

	return math.RoundToEven(methylated/float64(coverage)*1000) / 1000
}

// CellType picks epithelial (E) or stromal (S) with equal probability.
func (s *Simulator) CellType() string {
	if s.rng.IntN(2) == 0 {
		return "S"
	}

	return "E"
}

// ReadCpGs returns the sites on chrom from a BED file with at least three
// columns. The file may be compressed.
func ReadCpGs(ctx context.Context, path, chrom string) ([]CpG, error) {
	rc, err := methylseq.OpenDecompressed(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	out := make([]CpG, 0)
	for line := 1; ; line++ {
		cols, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		if len(cols) < 3 {
			return nil, fmt.Errorf("%s line %d: expected at least 3 columns, found %d", path, line, len(cols))
		}
		if cols[0] != chrom {
			continue
		}

		start, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		end, err := strconv.Atoi(cols[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		out = append(out, CpG{Chrom: cols[0], Start: start, End: end})
	}

	return out, nil
}

// SyntheticCpGs lays out n two-base sites on chrom, spacing bases apart.
func SyntheticCpGs(chrom string, n, spacing int) []CpG {
	out := make([]CpG, n)
	for i := range out {
		start := 10000 + i*spacing
		out[i] = CpG{Chrom: chrom, Start: start, End: start + 2}
	}

	return out
}

// WriteSample writes one gzipped methylation BED row per CpG.
func (s *Simulator) WriteSample(w io.Writer, cpgs []CpG) error {
	gw := gzip.NewWriter(w)

	cw := csv.NewWriter(gw)
	cw.Comma = '\t'

	row := make([]string, 6)
	for _, cpg := range cpgs {
		coverage := s.Coverage()
		beta := s.Beta(coverage)

		row[0] = cpg.Chrom
		row[1] = strconv.Itoa(cpg.Start)
		row[2] = strconv.Itoa(cpg.End)
		row[3] = strconv.FormatFloat(beta, 'f', -1, 64)
		row[4] = strconv.Itoa(coverage)
		row[5] = fmt.Sprintf("C:%.3f:%d,G:.:0", beta, coverage)

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	return gw.Close()
}

// SampleID formats the identifier of the nth simulated sample.
func SampleID(n int, cellType string) string {
	return fmt.Sprintf("%02da%s", n, cellType)
}

var metadataHeader = []string{
	"WGBS_ID", "tumor_id", "cluster", "sample", "age", "os_years", "xtic",
	"cellType", "histotype", "anatomic_site", "site", "Stage", "Stage_full",
	"Grade", "MIR200CHG",
}

// WriteMetadata writes a registry that lists all but two of the simulated
// samples, in random order, so that the pipeline has files to skip.
func (s *Simulator) WriteMetadata(w io.Writer, cellTypes []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(metadataHeader); err != nil {
		return err
	}

	n := len(cellTypes)
	kept := n - 2
	if kept < 0 {
		kept = 0
	}

	xtics := []string{"Normal", "HGSC-like", "CCOC-like", "ENOC-like"}
	histotypes := []string{"ENOC", "HGSC", "CCOC"}
	sites := [][2]string{{"Ovary", "Ovary"}, {"Omentum", "Non-ovary"}, {"Endometrium", "Non-ovary"}}
	stages := []string{"I", "II", "III"}

	for _, i := range s.rng.Perm(n)[:kept] {
		id := SampleID(i, cellTypes[i])

		cellType := "epithelial"
		if cellTypes[i] == "S" {
			cellType = "stromal"
		}

		site := sites[s.rng.IntN(len(sites))]
		stage := stages[s.rng.IntN(len(stages))]

		row := []string{
			id,
			strconv.Itoa(i),
			fmt.Sprintf("S%d", 1+s.rng.IntN(4)),
			id,
			strconv.FormatFloat(float64(40000+s.rng.IntN(35000))/10000, 'f', -1, 64),
			strconv.FormatFloat(float64(500+s.rng.IntN(24500))/10000, 'f', -1, 64),
			xtics[s.rng.IntN(len(xtics))],
			cellType,
			histotypes[s.rng.IntN(len(histotypes))],
			site[0],
			site[1],
			stage,
			stage + string(rune('A'+s.rng.IntN(3))),
			strconv.Itoa(1 + s.rng.IntN(3)),
			strconv.FormatFloat(float64(s.rng.IntN(100))/10, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
