// methsim writes simulated per-sample methylation BED files and a matching
// metadata sheet, for exercising methylseq without real data.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/carbocation/methylseq/compileinfo"
	"github.com/carbocation/methylseq/methbed"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		cpgBed  string
		chrom   string
		outDir  string
		samples int
		sites   int
		seed    uint64
	)

	flag.StringVar(&cpgBed, "cpg_bed", "", "BED file of CpG locations (chr, start, end). If empty, evenly spaced sites are generated.")
	flag.StringVar(&chrom, "chrom", "chr21", "Chromosome whose CpGs are simulated")
	flag.StringVar(&outDir, "out", ".", "Directory to write samples and metadata.tsv into")
	flag.IntVar(&samples, "samples", 12, "Number of samples to simulate")
	flag.IntVar(&sites, "sites", 10000, "Number of generated sites when no -cpg_bed is given")
	flag.Uint64Var(&seed, "seed", 2025, "Random seed")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	compileinfo.Log(logger)

	if samples < 1 {
		flag.PrintDefaults()
		log.Fatalln("-samples must be at least 1")
	}

	var cpgs []CpG
	if cpgBed != "" {
		var err error
		cpgs, err = ReadCpGs(context.Background(), cpgBed, chrom)
		if err != nil {
			log.Fatalln(err)
		}
	} else {
		cpgs = SyntheticCpGs(chrom, sites, 50)
	}
	if len(cpgs) == 0 {
		log.Fatalf("No CpGs found on %s\n", chrom)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalln(err)
	}

	sim := NewSimulator(seed)
	cellTypes := make([]string, samples)
	for n := range cellTypes {
		cellTypes[n] = sim.CellType()
		path := filepath.Join(outDir, SampleID(n, cellTypes[n])+methbed.DefaultSuffix)

		if err := writeFile(path, func(f *os.File) error { return sim.WriteSample(f, cpgs) }); err != nil {
			log.Fatalln(err)
		}
		logger.WithFields(logrus.Fields{"file": path, "sites": len(cpgs)}).Info("Simulated sample")
	}

	path := filepath.Join(outDir, "metadata.tsv")
	if err := writeFile(path, func(f *os.File) error { return sim.WriteMetadata(f, cellTypes) }); err != nil {
		log.Fatalln(err)
	}
	logger.WithField("file", path).Info("Wrote metadata")
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
